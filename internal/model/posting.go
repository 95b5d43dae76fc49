package model

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// UnknownCompany is stored when a listing card carries no company name.
const UnknownCompany = "Unknown"

// ErrInvalidPosting is returned when a posting lacks a title or an absolute URL.
var ErrInvalidPosting = errors.New("invalid posting")

// Source identifies the listing site a posting was extracted from.
type Source string

const (
	SourceLinkedIn    Source = "linkedin"
	SourceInternshala Source = "internshala"
	SourceNaukri      Source = "naukri"
	SourceIndeed      Source = "indeed"
)

// AllSources lists every known source in aggregation order.
var AllSources = []Source{SourceLinkedIn, SourceInternshala, SourceNaukri, SourceIndeed}

// DisplayName returns the label used in notifications.
func (s Source) DisplayName() string {
	switch s {
	case SourceLinkedIn:
		return "LinkedIn"
	case SourceInternshala:
		return "Internshala"
	case SourceNaukri:
		return "Naukri"
	case SourceIndeed:
		return "Indeed"
	default:
		return string(s)
	}
}

// Posting is one discovered job or internship listing. URL is the natural key.
type Posting struct {
	ID           int64     // assigned by the store, zero until persisted
	Title        string    // required
	Company      string    // UnknownCompany when absent
	URL          string    // canonical, absolute
	Source       Source    // extractor that produced it
	DiscoveredAt time.Time // set at extraction time
	Notified     bool      // persisted only
	CreatedAt    time.Time // persisted only
}

// Validate checks the fields every store requires.
func (p Posting) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidPosting)
	}
	u, err := url.Parse(p.URL)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: url %q is not absolute", ErrInvalidPosting, p.URL)
	}
	return nil
}

// CompanyOrUnknown returns Company, or UnknownCompany when it is blank.
func (p Posting) CompanyOrUnknown() string {
	if strings.TrimSpace(p.Company) == "" {
		return UnknownCompany
	}
	return p.Company
}

// Stats summarizes the dedup store.
type Stats struct {
	Total      int
	Notified   int
	Unnotified int
}

// Extractor pulls postings for a set of search keywords from one listing site.
// Per-keyword failures are absorbed; an error is only returned when ctx is done.
type Extractor interface {
	Source() Source
	Extract(ctx context.Context, keywords []string) ([]Posting, error)
}

// PostingFilter decides whether a posting is kept.
type PostingFilter interface {
	Match(p Posting) bool
}

// PostingStore is the durable set of seen postings, keyed by URL.
type PostingStore interface {
	// RecordIfNew inserts p and reports whether its URL was not recorded before.
	RecordIfNew(ctx context.Context, p Posting) (bool, error)
	// RecordAllIfNew returns, in input order, the postings that were new.
	// Postings that fail to insert are treated as not new.
	RecordAllIfNew(ctx context.Context, postings []Posting) []Posting
	// Unnotified returns postings not yet delivered, most recently recorded first.
	Unnotified(ctx context.Context) ([]Posting, error)
	MarkNotified(ctx context.Context, id int64) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Deliverer sends a batch of postings to a recipient. A nil error means the
// whole batch was delivered.
type Deliverer interface {
	Deliver(ctx context.Context, recipient string, postings []Posting) error
}
