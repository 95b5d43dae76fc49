package adapter

import (
	"net/url"

	"github.com/amishk599/jobradar/internal/model"
)

var linkedInSite = site{
	source:         model.SourceLinkedIn,
	defaultBaseURL: "https://www.linkedin.com",
	path:           "/jobs/search",
	defaultMax:     20,
	card:           "div.base-card",
	title:          "h3.base-search-card__title",
	company:        "h4.base-search-card__subtitle",
	link:           "a.base-card__full-link",
	// The job id is in the path; the query only carries tracking state.
	dropQuery: true,
	queries: func(location string, keywords []string) []query {
		return perKeyword(keywords, func(kw string) url.Values {
			return url.Values{
				"keywords": {kw + " " + location},
				"location": {location},
				"f_TPR":    {"r86400"}, // past 24 hours
				"f_E":      {"2,1"},    // entry level, internship
				"start":    {"0"},
			}
		})
	},
}

// LinkedInAdapter scrapes the public LinkedIn job search page.
type LinkedInAdapter struct {
	*scraper
}

var _ model.Extractor = (*LinkedInAdapter)(nil)

// NewLinkedInAdapter creates a LinkedIn adapter.
func NewLinkedInAdapter(opts Options) (*LinkedInAdapter, error) {
	s, err := newScraper(linkedInSite, opts)
	if err != nil {
		return nil, err
	}
	return &LinkedInAdapter{scraper: s}, nil
}
