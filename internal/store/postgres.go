package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobradar/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS postings (
	id            BIGSERIAL PRIMARY KEY,
	title         TEXT        NOT NULL,
	company       TEXT        NOT NULL,
	url           TEXT        NOT NULL UNIQUE,
	source        TEXT        NOT NULL,
	discovered_at TIMESTAMPTZ NOT NULL,
	notified      BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_postings_url ON postings(url);
CREATE INDEX IF NOT EXISTS idx_postings_notified ON postings(notified);
`

// PostgresStore keeps the dedup set in PostgreSQL, for deployments where
// several hosts share one history.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ model.PostingStore = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and ensures the postings table exists.
func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	if cfg.MaxConns < 2 {
		cfg.MaxConns = 2
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating postings table: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) RecordIfNew(ctx context.Context, p model.Posting) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO postings (title, company, url, source, discovered_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (url) DO NOTHING`,
		p.Title, p.CompanyOrUnknown(), p.URL, string(p.Source), p.DiscoveredAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("recording %s: %w", p.URL, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) RecordAllIfNew(ctx context.Context, postings []model.Posting) []model.Posting {
	return recordAll(ctx, s.RecordIfNew, postings, s.logger)
}

func (s *PostgresStore) Unnotified(ctx context.Context) ([]model.Posting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, company, url, source, discovered_at, notified, created_at
		 FROM postings WHERE NOT notified
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying unnotified postings: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Posting, error) {
		var (
			p                   model.Posting
			source              string
			discovered, created time.Time
		)
		if err := row.Scan(&p.ID, &p.Title, &p.Company, &p.URL, &source, &discovered, &p.Notified, &created); err != nil {
			return model.Posting{}, err
		}
		p.Source = model.Source(source)
		p.DiscoveredAt = discovered.UTC()
		p.CreatedAt = created.UTC()
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning postings: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkNotified(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "UPDATE postings SET notified = TRUE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("marking posting %d notified: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("marking posting %d notified: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*), COUNT(*) FILTER (WHERE notified) FROM postings").Scan(&st.Total, &st.Notified)
	if err != nil {
		return model.Stats{}, fmt.Errorf("counting postings: %w", err)
	}
	st.Unnotified = st.Total - st.Notified
	return st, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
