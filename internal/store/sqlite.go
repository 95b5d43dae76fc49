package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobradar/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS postings (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	title         TEXT    NOT NULL,
	company       TEXT    NOT NULL,
	url           TEXT    NOT NULL UNIQUE,
	source        TEXT    NOT NULL,
	discovered_at TEXT    NOT NULL,
	notified      INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_postings_url ON postings(url);
CREATE INDEX IF NOT EXISTS idx_postings_notified ON postings(notified);
`

// SQLiteStore is the default dedup store. All writes go through a single
// connection, so inserts are serialised.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ model.PostingStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// postings table exists.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating postings table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}, nil
}

// RecordIfNew inserts p unless its URL is already recorded. The check and the
// insert are one statement, so concurrent callers cannot both win.
func (s *SQLiteStore) RecordIfNew(ctx context.Context, p model.Posting) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO postings (title, company, url, source, discovered_at, notified, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT(url) DO NOTHING`,
		p.Title, p.CompanyOrUnknown(), p.URL, string(p.Source),
		formatTime(p.DiscoveredAt), formatTime(s.now()),
	)
	if err != nil {
		return false, fmt.Errorf("recording %s: %w", p.URL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("recording %s: %w", p.URL, err)
	}
	return n == 1, nil
}

// RecordAllIfNew returns the input-ordered subsequence of postings that were new.
func (s *SQLiteStore) RecordAllIfNew(ctx context.Context, postings []model.Posting) []model.Posting {
	return recordAll(ctx, s.RecordIfNew, postings, s.logger)
}

// Unnotified returns postings not yet delivered, newest first.
func (s *SQLiteStore) Unnotified(ctx context.Context) ([]model.Posting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, company, url, source, discovered_at, notified, created_at
		 FROM postings WHERE notified = 0
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying unnotified postings: %w", err)
	}
	defer rows.Close()

	var out []model.Posting
	for rows.Next() {
		var (
			p                   model.Posting
			source              string
			discovered, created string
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Company, &p.URL, &source, &discovered, &p.Notified, &created); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		p.Source = model.Source(source)
		if p.DiscoveredAt, err = parseTime(discovered); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating postings: %w", err)
	}
	return out, nil
}

// MarkNotified flags the posting with id as delivered.
func (s *SQLiteStore) MarkNotified(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE postings SET notified = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking posting %d notified: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking posting %d notified: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("marking posting %d notified: %w", id, ErrNotFound)
	}
	return nil
}

// Stats counts recorded postings.
func (s *SQLiteStore) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(notified), 0) FROM postings").Scan(&st.Total, &st.Notified)
	if err != nil {
		return model.Stats{}, fmt.Errorf("counting postings: %w", err)
	}
	st.Unnotified = st.Total - st.Notified
	return st, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
