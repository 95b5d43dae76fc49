package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

// ErrNotFound is returned when a posting id does not exist.
var ErrNotFound = errors.New("posting not found")

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open returns the store for driver. dsn is a file path for sqlite and a
// connection string for postgres.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (model.PostingStore, error) {
	switch driver {
	case "", DriverSQLite:
		return NewSQLiteStore(dsn, logger)
	case DriverPostgres:
		return NewPostgresStore(ctx, dsn, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// recordAll applies record to each posting in order and keeps the new ones.
// A failing posting is logged and treated as not new.
func recordAll(ctx context.Context, record func(context.Context, model.Posting) (bool, error), postings []model.Posting, logger *slog.Logger) []model.Posting {
	var fresh []model.Posting
	for _, p := range postings {
		isNew, err := record(ctx, p)
		if err != nil {
			logger.Warn("recording posting failed", "url", p.URL, "error", err)
			continue
		}
		if isNew {
			fresh = append(fresh, p)
		}
	}
	return fresh
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}
