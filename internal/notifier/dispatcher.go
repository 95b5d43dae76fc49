package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

// Dispatcher renders a batch and hands it to the secondary channel first,
// falling back to the primary channel when that fails.
type Dispatcher struct {
	primary   Channel
	secondary Channel
	from      string
	now       func() time.Time
	logger    *slog.Logger
}

var _ model.Deliverer = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. secondary may be nil.
func NewDispatcher(primary, secondary Channel, from string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		primary:   primary,
		secondary: secondary,
		from:      from,
		now:       time.Now,
		logger:    logger,
	}
}

// Deliver sends the whole batch or returns an error. It never touches the
// store; acknowledging the batch is the caller's job.
func (d *Dispatcher) Deliver(ctx context.Context, recipient string, postings []model.Posting) error {
	if len(postings) == 0 {
		return ErrEmptyBatch
	}
	if recipient == "" {
		return errors.New("deliver: no recipient")
	}

	now := d.now()
	msg, err := Render(postings, now)
	if err != nil {
		return err
	}
	return d.send(ctx, Envelope{
		From:     d.from,
		To:       []string{recipient},
		Date:     now,
		Message:  msg,
		Postings: postings,
	})
}

// SendTest delivers a single sample posting to check the configuration.
func (d *Dispatcher) SendTest(ctx context.Context, recipient string) error {
	now := d.now()
	sample := []model.Posting{{
		Title:        "Test Job Listing",
		Company:      "Test Company",
		URL:          "https://example.com",
		Source:       model.Source("Test Source"),
		DiscoveredAt: now,
	}}
	msg, err := Render(sample, now)
	if err != nil {
		return err
	}
	msg.Subject = "Test Email - jobradar"
	// Each test send is its own batch.
	msg.BatchID = BatchID(sample) + now.Format("150405")
	return d.send(ctx, Envelope{
		From:     d.from,
		To:       []string{recipient},
		Date:     now,
		Message:  msg,
		Postings: sample,
	})
}

func (d *Dispatcher) send(ctx context.Context, env Envelope) error {
	if d.secondary != nil {
		err := d.secondary.Send(ctx, env)
		if err == nil {
			d.logger.Info("batch delivered", "channel", d.secondary.Name(), "postings", len(env.Postings), "batch", env.Message.BatchID)
			return nil
		}
		if d.primary == nil {
			return fmt.Errorf("deliver via %s: %w", d.secondary.Name(), err)
		}
		d.logger.Warn("secondary channel failed, falling back",
			"channel", d.secondary.Name(), "fallback", d.primary.Name(), "error", err)
	}
	if d.primary == nil {
		return errors.New("deliver: no channel configured")
	}

	if err := d.primary.Send(ctx, env); err != nil {
		return fmt.Errorf("deliver via %s: %w", d.primary.Name(), err)
	}
	d.logger.Info("batch delivered", "channel", d.primary.Name(), "postings", len(env.Postings), "batch", env.Message.BatchID)
	return nil
}
