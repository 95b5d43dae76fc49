package aggregator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeExtractor struct {
	source   model.Source
	postings []model.Posting
	err      error
	delay    time.Duration
	inFlight *atomic.Int32
	maxSeen  *atomic.Int32
}

func (f *fakeExtractor) Source() model.Source { return f.source }

func (f *fakeExtractor) Extract(ctx context.Context, _ []string) ([]model.Posting, error) {
	if f.inFlight != nil {
		n := f.inFlight.Add(1)
		defer f.inFlight.Add(-1)
		for {
			cur := f.maxSeen.Load()
			if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
				break
			}
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.postings, f.err
}

func posting(src model.Source, url string) model.Posting {
	return model.Posting{Title: "Trainee", URL: url, Source: src}
}

func TestScrapeAll_ConcatenatesInOrder(t *testing.T) {
	extractors := []model.Extractor{
		// The slow first source must still come first.
		&fakeExtractor{source: model.SourceLinkedIn, delay: 30 * time.Millisecond, postings: []model.Posting{
			posting(model.SourceLinkedIn, "https://l/1"),
			posting(model.SourceLinkedIn, "https://l/2"),
		}},
		&fakeExtractor{source: model.SourceInternshala, postings: []model.Posting{
			posting(model.SourceInternshala, "https://i/1"),
		}},
		&fakeExtractor{source: model.SourceNaukri, postings: []model.Posting{
			posting(model.SourceNaukri, "https://n/1"),
		}},
	}

	for _, concurrency := range []int{1, 4} {
		agg := New(extractors, concurrency, discardLogger())
		got, err := agg.ScrapeAll(context.Background(), []string{"fresher"})
		if err != nil {
			t.Fatalf("concurrency %d: unexpected error: %v", concurrency, err)
		}
		want := []string{"https://l/1", "https://l/2", "https://i/1", "https://n/1"}
		if len(got) != len(want) {
			t.Fatalf("concurrency %d: expected %d postings, got %d", concurrency, len(want), len(got))
		}
		for i := range want {
			if got[i].URL != want[i] {
				t.Errorf("concurrency %d: posting %d = %s, want %s", concurrency, i, got[i].URL, want[i])
			}
		}
	}
}

func TestScrapeAll_FailingExtractorKeepsPartialResults(t *testing.T) {
	extractors := []model.Extractor{
		&fakeExtractor{source: model.SourceLinkedIn, err: errors.New("rate limiter wait: would exceed context deadline"), postings: []model.Posting{
			posting(model.SourceLinkedIn, "https://l/partial"),
		}},
		&fakeExtractor{source: model.SourceNaukri, err: errors.New("blocked")},
		&fakeExtractor{source: model.SourceIndeed, postings: []model.Posting{
			posting(model.SourceIndeed, "https://in/1"),
		}},
	}

	got, err := New(extractors, 2, discardLogger()).ScrapeAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].URL != "https://l/partial" || got[1].URL != "https://in/1" {
		t.Fatalf("expected partial linkedin posting then indeed, got %+v", got)
	}
}

func TestScrapeAll_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, maxSeen atomic.Int32
	var extractors []model.Extractor
	for _, src := range model.AllSources {
		extractors = append(extractors, &fakeExtractor{
			source: src, delay: 20 * time.Millisecond, inFlight: &inFlight, maxSeen: &maxSeen,
		})
	}

	if _, err := New(extractors, 2, discardLogger()).ScrapeAll(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if m := maxSeen.Load(); m > 2 {
		t.Errorf("expected at most 2 extractors in flight, saw %d", m)
	}
}

func TestScrapeAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	extractors := []model.Extractor{
		&fakeExtractor{source: model.SourceLinkedIn, delay: time.Second},
	}
	_, err := New(extractors, 1, discardLogger()).ScrapeAll(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSources(t *testing.T) {
	agg := New([]model.Extractor{
		&fakeExtractor{source: model.SourceNaukri},
		&fakeExtractor{source: model.SourceIndeed},
	}, 0, discardLogger())
	got := agg.Sources()
	if len(got) != 2 || got[0] != model.SourceNaukri || got[1] != model.SourceIndeed {
		t.Errorf("Sources() = %v", got)
	}
}
