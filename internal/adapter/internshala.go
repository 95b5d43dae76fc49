package adapter

import (
	"net/url"
	"strings"

	"github.com/amishk599/jobradar/internal/model"
)

var internshalaSite = site{
	source:         model.SourceInternshala,
	defaultBaseURL: "https://internshala.com",
	path:           "/internships",
	defaultMax:     30,
	card:           "div.internship_meta",
	title:          "h3.heading_4_5",
	company:        "a.link_display_like_text",
	link:           "a.view_detail_button",
	// Internshala has no keyword search on the listing page; one query per
	// cycle covers it.
	queries: func(location string, _ []string) []query {
		return []query{{
			keyword: "*",
			params: url.Values{
				"location":   {strings.ToLower(location)},
				"preference": {"all"},
			},
		}}
	},
}

// InternshalaAdapter scrapes the Internshala internship listing.
type InternshalaAdapter struct {
	*scraper
}

var _ model.Extractor = (*InternshalaAdapter)(nil)

// NewInternshalaAdapter creates an Internshala adapter.
func NewInternshalaAdapter(opts Options) (*InternshalaAdapter, error) {
	s, err := newScraper(internshalaSite, opts)
	if err != nil {
		return nil, err
	}
	return &InternshalaAdapter{scraper: s}, nil
}
