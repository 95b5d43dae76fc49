package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobradar/internal/filter"
	"github.com/amishk599/jobradar/internal/model"
)

// Scraper gathers postings from every source.
type Scraper interface {
	ScrapeAll(ctx context.Context, keywords []string) ([]model.Posting, error)
}

// Config holds the per-cycle settings.
type Config struct {
	Keywords  []string
	Recipient string
	// MinNewForNotify is the smallest batch worth an email.
	MinNewForNotify int
}

// Report summarises one cycle.
type Report struct {
	Scraped      int
	Kept         int
	New          int
	Delivered    int
	Acknowledged int
}

// Poller owns the full cycle: scrape → filter → record → deliver → acknowledge.
type Poller struct {
	scraper   Scraper
	filter    model.PostingFilter
	store     model.PostingStore
	deliverer model.Deliverer
	cfg       Config
	logger    *slog.Logger
}

// New creates a poller wired with all its dependencies.
func New(
	scraper Scraper,
	f model.PostingFilter,
	store model.PostingStore,
	deliverer model.Deliverer,
	cfg Config,
	logger *slog.Logger,
) *Poller {
	if cfg.MinNewForNotify < 1 {
		cfg.MinNewForNotify = 1
	}
	return &Poller{
		scraper:   scraper,
		filter:    f,
		store:     store,
		deliverer: deliverer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Poll runs one cycle. Every posting recorded before a failure stays
// recorded; a delivery failure leaves the batch unnotified and is returned.
func (p *Poller) Poll(ctx context.Context) (Report, error) {
	var r Report
	start := time.Now()

	postings, err := p.scraper.ScrapeAll(ctx, p.cfg.Keywords)
	if err != nil {
		return r, fmt.Errorf("scraping: %w", err)
	}
	r.Scraped = len(postings)

	kept := filter.Apply(p.filter, postings)
	r.Kept = len(kept)

	fresh := p.store.RecordAllIfNew(ctx, kept)
	r.New = len(fresh)

	p.logger.Info("cycle scraped",
		"scraped", r.Scraped,
		"kept", r.Kept,
		"new", r.New,
	)

	if r.New == 0 || r.New < p.cfg.MinNewForNotify {
		p.logger.Info("not enough new postings to notify", "new", r.New, "minimum", p.cfg.MinNewForNotify)
		p.logStats(ctx)
		return r, nil
	}

	if err := p.deliver(ctx, fresh, &r); err != nil {
		return r, err
	}

	p.logStats(ctx)
	p.logger.Info("cycle complete", "delivered", r.Delivered, "acknowledged", r.Acknowledged, "duration", time.Since(start).Round(time.Millisecond))
	return r, nil
}

// DeliverPending sends every unnotified posting as one batch and
// acknowledges it. Used to recover after delivery outages.
func (p *Poller) DeliverPending(ctx context.Context) (Report, error) {
	var r Report
	pending, err := p.store.Unnotified(ctx)
	if err != nil {
		return r, fmt.Errorf("loading pending postings: %w", err)
	}
	r.New = len(pending)
	if len(pending) == 0 {
		p.logger.Info("no pending postings")
		return r, nil
	}
	if err := p.deliver(ctx, pending, &r); err != nil {
		return r, err
	}
	return r, nil
}

func (p *Poller) deliver(ctx context.Context, batch []model.Posting, r *Report) error {
	if err := p.deliverer.Deliver(ctx, p.cfg.Recipient, batch); err != nil {
		return fmt.Errorf("delivering %d postings: %w", len(batch), err)
	}
	r.Delivered = len(batch)

	n, err := Acknowledge(ctx, p.store, batch)
	r.Acknowledged = n
	if err != nil {
		return fmt.Errorf("acknowledging delivered postings: %w", err)
	}
	return nil
}

func (p *Poller) logStats(ctx context.Context) {
	st, err := p.store.Stats(ctx)
	if err != nil {
		p.logger.Warn("reading store stats failed", "error", err)
		return
	}
	p.logger.Info("store stats", "total", st.Total, "notified", st.Notified, "unnotified", st.Unnotified)
}
