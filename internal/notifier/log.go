package notifier

import (
	"context"
	"log/slog"
)

// Ensure LogChannel implements Channel.
var _ Channel = (*LogChannel)(nil)

// LogChannel writes each batch to the logger instead of sending mail. Used by
// dry runs and the "log" notification type.
type LogChannel struct {
	logger *slog.Logger
}

// NewLogChannel returns a channel that logs each posting via slog.
func NewLogChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string { return "log" }

// Send logs the subject and one line per posting. It never fails.
func (c *LogChannel) Send(_ context.Context, env Envelope) error {
	c.logger.Info("notification", "subject", env.Message.Subject, "to", env.To, "batch", env.Message.BatchID)
	for _, p := range env.Postings {
		c.logger.Info("new posting",
			"title", p.Title,
			"company", p.CompanyOrUnknown(),
			"source", p.Source.DisplayName(),
			"url", p.URL,
		)
	}
	return nil
}
