package adapter

import (
	"net/url"
	"strings"

	"github.com/amishk599/jobradar/internal/model"
)

var naukriSite = site{
	source:         model.SourceNaukri,
	defaultBaseURL: "https://www.naukri.com",
	path:           "/jobs-in-india",
	defaultMax:     20,
	card:           "article.jobTuple",
	title:          "a.title",
	company:        "a.subTitle",
	link:           "a.title",
	queries: func(location string, keywords []string) []query {
		return perKeyword(keywords, func(kw string) url.Values {
			return url.Values{
				"k":          {kw},
				"l":          {strings.ToLower(location)},
				"experience": {"0"},
			}
		})
	},
}

// NaukriAdapter scrapes Naukri.com fresher searches.
type NaukriAdapter struct {
	*scraper
}

var _ model.Extractor = (*NaukriAdapter)(nil)

func NewNaukriAdapter(opts Options) (*NaukriAdapter, error) {
	s, err := newScraper(naukriSite, opts)
	if err != nil {
		return nil, err
	}
	return &NaukriAdapter{scraper: s}, nil
}
