package adapter

import (
	"net/url"

	"github.com/amishk599/jobradar/internal/model"
)

var indeedSite = site{
	source:         model.SourceIndeed,
	defaultBaseURL: "https://in.indeed.com",
	path:           "/jobs",
	defaultMax:     20,
	card:           "div.job_seen_beacon",
	title:          "h2.jobTitle",
	company:        "span.companyName",
	link:           "a.jcs-JobTitle",
	queries: func(location string, keywords []string) []query {
		return perKeyword(keywords, func(kw string) url.Values {
			return url.Values{
				"q":       {kw + " " + location},
				"l":       {location},
				"fromage": {"1"},
				"explvl":  {"entry_level"},
			}
		})
	},
}

// IndeedAdapter scrapes Indeed (India) job searches posted in the last day.
type IndeedAdapter struct {
	*scraper
}

var _ model.Extractor = (*IndeedAdapter)(nil)

// NewIndeedAdapter creates an Indeed adapter.
func NewIndeedAdapter(opts Options) (*IndeedAdapter, error) {
	s, err := newScraper(indeedSite, opts)
	if err != nil {
		return nil, err
	}
	return &IndeedAdapter{scraper: s}, nil
}
