package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath, discardLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPosting(url string) model.Posting {
	return model.Posting{
		Title:        "Graduate Engineer",
		Company:      "Acme",
		URL:          url,
		Source:       model.SourceLinkedIn,
		DiscoveredAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestRecordIfNew_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := testPosting("https://example.com/jobs/1")

	isNew, err := s.RecordIfNew(ctx, p)
	if err != nil {
		t.Fatalf("first RecordIfNew: %v", err)
	}
	if !isNew {
		t.Fatal("expected first insert to be new")
	}

	isNew, err = s.RecordIfNew(ctx, p)
	if err != nil {
		t.Fatalf("second RecordIfNew: %v", err)
	}
	if isNew {
		t.Error("expected second insert of the same url to be not new")
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 1 {
		t.Errorf("expected 1 row, got %d", st.Total)
	}
}

func TestRecordIfNew_URLIsTheKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := testPosting("https://example.com/jobs/2")
	if _, err := s.RecordIfNew(ctx, first); err != nil {
		t.Fatal(err)
	}

	// Same url, every other field different.
	other := model.Posting{
		Title:        "Completely Different Title",
		Company:      "Other Co",
		URL:          first.URL,
		Source:       model.SourceIndeed,
		DiscoveredAt: first.DiscoveredAt.Add(time.Hour),
	}
	isNew, err := s.RecordIfNew(ctx, other)
	if err != nil {
		t.Fatal(err)
	}
	if isNew {
		t.Error("expected same url to be a duplicate")
	}

	got, err := s.Unnotified(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != first.Title || got[0].Source != first.Source {
		t.Errorf("expected original row to be untouched, got %+v", got)
	}
}

func TestRecordIfNew_RejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	_, err := s.RecordIfNew(context.Background(), model.Posting{Title: "x", URL: "/relative"})
	if !errors.Is(err, model.ErrInvalidPosting) {
		t.Fatalf("expected ErrInvalidPosting, got %v", err)
	}
}

func TestRecordIfNew_ConcurrentDuplicatesOneWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := testPosting("https://example.com/jobs/race")

	const workers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := s.RecordIfNew(ctx, p)
			if err != nil {
				t.Errorf("RecordIfNew: %v", err)
				return
			}
			if isNew {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := wins.Load(); n != 1 {
		t.Errorf("expected exactly one winner, got %d", n)
	}
}

func TestRecordAllIfNew_InputOrderedSubsequence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.RecordIfNew(ctx, testPosting("https://example.com/jobs/b")); err != nil {
		t.Fatal(err)
	}

	batch := []model.Posting{
		testPosting("https://example.com/jobs/a"),
		testPosting("https://example.com/jobs/b"),
		{Title: "", URL: "https://example.com/jobs/invalid"},
		testPosting("https://example.com/jobs/c"),
		testPosting("https://example.com/jobs/a"),
	}
	fresh := s.RecordAllIfNew(ctx, batch)

	want := []string{"https://example.com/jobs/a", "https://example.com/jobs/c"}
	if len(fresh) != len(want) {
		t.Fatalf("expected %d new postings, got %d", len(want), len(fresh))
	}
	for i := range want {
		if fresh[i].URL != want[i] {
			t.Errorf("fresh[%d] = %s, want %s", i, fresh[i].URL, want[i])
		}
	}
}

func TestUnnotified_NewestFirstAndMarkNotified(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for i := 1; i <= 3; i++ {
		if _, err := s.RecordIfNew(ctx, testPosting(fmt.Sprintf("https://example.com/jobs/%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Unnotified(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 unnotified, got %d", len(got))
	}
	if got[0].URL != "https://example.com/jobs/3" || got[2].URL != "https://example.com/jobs/1" {
		t.Errorf("expected newest first, got %s .. %s", got[0].URL, got[2].URL)
	}

	if err := s.MarkNotified(ctx, got[1].ID); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	got, err = s.Unnotified(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 unnotified after marking, got %d", len(got))
	}
	for _, p := range got {
		if p.URL == "https://example.com/jobs/2" {
			t.Error("marked posting still reported as unnotified")
		}
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st != (model.Stats{Total: 3, Notified: 1, Unnotified: 2}) {
		t.Errorf("Stats = %+v", st)
	}
}

func TestUnnotified_SameTimestampOrderedByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	for _, u := range []string{"https://example.com/x", "https://example.com/y"} {
		if _, err := s.RecordIfNew(ctx, testPosting(u)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Unnotified(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].URL != "https://example.com/y" {
		t.Errorf("expected later insert first on timestamp tie, got %+v", got)
	}
}

func TestMarkNotified_UnknownID(t *testing.T) {
	s := newTestStore(t)
	if err := s.MarkNotified(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 2, 8, 15, 30, 0, time.UTC)
	s.now = func() time.Time { return created }

	in := model.Posting{
		Title:        "Software Trainee",
		Company:      "",
		URL:          "https://www.naukri.com/job-listings-software-trainee-7",
		Source:       model.SourceNaukri,
		DiscoveredAt: time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC),
	}
	if _, err := s.RecordIfNew(ctx, in); err != nil {
		t.Fatal(err)
	}

	got, err := s.Unnotified(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(got))
	}
	out := got[0]
	if out.ID == 0 {
		t.Error("expected an assigned ID")
	}
	if out.Title != in.Title || out.URL != in.URL || out.Source != in.Source {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if out.Company != model.UnknownCompany {
		t.Errorf("expected blank company stored as Unknown, got %q", out.Company)
	}
	if !out.DiscoveredAt.Equal(in.DiscoveredAt) {
		t.Errorf("DiscoveredAt = %v, want %v", out.DiscoveredAt, in.DiscoveredAt)
	}
	if !out.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", out.CreatedAt, created)
	}
	if out.Notified {
		t.Error("expected Notified false")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(dbPath, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s1.RecordIfNew(ctx, testPosting("https://example.com/jobs/keep")); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(dbPath, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	isNew, err := s2.RecordIfNew(ctx, testPosting("https://example.com/jobs/keep"))
	if err != nil {
		t.Fatal(err)
	}
	if isNew {
		t.Error("expected posting recorded before reopen to be a duplicate")
	}
}

func TestNopStore(t *testing.T) {
	s := NewNopStore()
	ctx := context.Background()
	p := testPosting("https://example.com/jobs/nop")

	for i := 0; i < 2; i++ {
		isNew, err := s.RecordIfNew(ctx, p)
		if err != nil || !isNew {
			t.Fatalf("call %d: expected new, got %v %v", i, isNew, err)
		}
	}
	fresh := s.RecordAllIfNew(ctx, []model.Posting{p, {Title: "bad"}})
	if len(fresh) != 1 {
		t.Errorf("expected invalid posting dropped, got %d", len(fresh))
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x", discardLogger()); err == nil {
		t.Error("expected error for unknown driver")
	}
}
