package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobradar/internal/model"
)

// Aggregator runs every configured extractor and merges their results.
type Aggregator struct {
	extractors  []model.Extractor
	concurrency int
	logger      *slog.Logger
}

// New creates an Aggregator. Extractors are merged in the order given.
// concurrency below 1 is treated as 1 (sequential).
func New(extractors []model.Extractor, concurrency int, logger *slog.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{
		extractors:  extractors,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Sources lists the sources in merge order.
func (a *Aggregator) Sources() []model.Source {
	out := make([]model.Source, len(a.extractors))
	for i, ex := range a.extractors {
		out[i] = ex.Source()
	}
	return out
}

// ScrapeAll extracts from every source and concatenates the results in
// extractor order. A failing extractor is logged and contributes whatever it
// collected before failing.
func (a *Aggregator) ScrapeAll(ctx context.Context, keywords []string) ([]model.Posting, error) {
	results := make([][]model.Posting, len(a.extractors))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, ex := range a.extractors {
		g.Go(func() error {
			start := time.Now()
			postings, err := ex.Extract(ctx, keywords)
			results[i] = postings
			if err != nil {
				a.logger.Warn("extractor failed", "source", string(ex.Source()), "partial", len(postings), "error", err)
				return nil
			}
			a.logger.Info("source scraped",
				"source", string(ex.Source()),
				"postings", len(postings),
				"duration", time.Since(start).Round(time.Millisecond),
			)
			return nil
		})
	}
	// Goroutines never return errors; failures are logged above.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scrape all: %w", err)
	}

	var all []model.Posting
	for _, ps := range results {
		all = append(all, ps...)
	}
	return all, nil
}
