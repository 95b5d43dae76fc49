package filter

import (
	"strings"

	"github.com/amishk599/jobradar/internal/model"
)

// Ensure TitleExcludeFilter implements model.PostingFilter.
var _ model.PostingFilter = (*TitleExcludeFilter)(nil)

// TitleExcludeFilter drops postings whose title contains any exclusion term.
// Matching is a case-insensitive substring test, not a word match: "vp" also
// excludes "MVP Engineer".
type TitleExcludeFilter struct {
	terms []string
}

// NewTitleExcludeFilter returns a filter over the given exclusion terms.
// Blank terms are ignored.
func NewTitleExcludeFilter(excludeTerms []string) *TitleExcludeFilter {
	terms := make([]string, 0, len(excludeTerms))
	for _, t := range excludeTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return &TitleExcludeFilter{terms: terms}
}

// Match returns true if the posting should be kept.
func (f *TitleExcludeFilter) Match(p model.Posting) bool {
	titleLower := strings.ToLower(p.Title)
	for _, term := range f.terms {
		if strings.Contains(titleLower, term) {
			return false
		}
	}
	return true
}

// Apply returns the postings accepted by f, preserving input order.
// The input slice is not modified.
func Apply(f model.PostingFilter, postings []model.Posting) []model.Posting {
	kept := make([]model.Posting, 0, len(postings))
	for _, p := range postings {
		if f.Match(p) {
			kept = append(kept, p)
		}
	}
	return kept
}
