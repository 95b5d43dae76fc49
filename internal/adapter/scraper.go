package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobradar/internal/model"
)

// DefaultTimeout bounds every page request when Options.Client is nil.
const DefaultTimeout = 10 * time.Second

const (
	skipMissingTitle     = "missing title"
	skipMissingLink      = "missing link"
	skipUnresolvableLink = "unresolvable link"
)

// Limiter paces requests against one source. Wait is called before each
// query and Done once its response has been read.
type Limiter interface {
	Wait(ctx context.Context, src model.Source) error
	Done(src model.Source)
}

// Options configures a site adapter. Zero values fall back to the site's
// defaults.
type Options struct {
	BaseURL    string
	Location   string
	MaxResults int
	Client     *http.Client
	Limiter    Limiter
	Logger     *slog.Logger
}

// query is one search page request.
type query struct {
	keyword string
	params  url.Values
}

// site describes the markup and search endpoint of one listing site.
type site struct {
	source         model.Source
	defaultBaseURL string
	path           string
	defaultMax     int

	card    string
	title   string
	company string
	link    string

	// dropQuery strips the whole query string from posting links.
	dropQuery bool

	queries func(location string, keywords []string) []query
}

// cardResult is the outcome of parsing one result card: either a posting or
// the reason the card was skipped.
type cardResult struct {
	posting model.Posting
	skip    string
}

// scraper implements model.Extractor for any site description.
type scraper struct {
	site       site
	base       *url.URL
	location   string
	maxResults int
	client     *http.Client
	limiter    Limiter
	logger     *slog.Logger
	now        func() time.Time
}

func newScraper(s site, opts Options) (*scraper, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = s.defaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%s: invalid base url %q", s.source, raw)
	}

	sc := &scraper{
		site:       s,
		base:       base,
		location:   strings.TrimSpace(opts.Location),
		maxResults: opts.MaxResults,
		client:     opts.Client,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if sc.location == "" {
		sc.location = "India"
	}
	if sc.maxResults <= 0 {
		sc.maxResults = s.defaultMax
	}
	if sc.client == nil {
		sc.client = &http.Client{Timeout: DefaultTimeout}
	}
	if sc.logger == nil {
		sc.logger = slog.Default()
	}
	sc.logger = sc.logger.With("source", string(s.source))
	return sc, nil
}

// Source returns the site this scraper reads.
func (s *scraper) Source() model.Source {
	return s.site.source
}

// Extract runs one search per query and collects postings in page order.
// A failed query is logged and skipped; only context cancellation is
// returned as an error, together with whatever was gathered before it.
func (s *scraper) Extract(ctx context.Context, keywords []string) ([]model.Posting, error) {
	var postings []model.Posting

	for _, q := range s.site.queries(s.location, keywords) {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx, s.site.source); err != nil {
				return postings, fmt.Errorf("%s extract: %w", s.site.source, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return postings, fmt.Errorf("%s extract: %w", s.site.source, err)
		}

		pageURL := s.pageURL(q.params)
		doc, err := fetchDocument(ctx, s.client, pageURL)
		if s.limiter != nil {
			s.limiter.Done(s.site.source)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return postings, fmt.Errorf("%s extract: %w", s.site.source, ctxErr)
			}
			var httpErr *model.HTTPError
			if errors.As(err, &httpErr) {
				s.logger.Warn("search page rejected", "keyword", q.keyword, "status", httpErr.StatusCode)
			} else {
				s.logger.Warn("search page failed", "keyword", q.keyword, "error", err)
			}
			continue
		}

		found := 0
		for _, r := range s.parse(doc) {
			if r.skip != "" {
				s.logger.Debug("card skipped", "keyword", q.keyword, "reason", r.skip)
				continue
			}
			postings = append(postings, r.posting)
			found++
		}
		s.logger.Debug("search page parsed", "keyword", q.keyword, "postings", found)
	}

	return postings, nil
}

func (s *scraper) pageURL(params url.Values) string {
	u := *s.base
	u.Path = strings.TrimSuffix(u.Path, "/") + s.site.path
	u.RawQuery = params.Encode()
	return u.String()
}

// parse reads at most maxResults cards from a search page.
func (s *scraper) parse(doc *goquery.Document) []cardResult {
	cards := doc.Find(s.site.card)
	if cards.Length() > s.maxResults {
		cards = cards.Slice(0, s.maxResults)
	}

	now := s.now()
	results := make([]cardResult, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		results = append(results, s.parseCard(card, now))
	})
	return results
}

func (s *scraper) parseCard(card *goquery.Selection, now time.Time) cardResult {
	title := cleanText(card.Find(s.site.title).First().Text())
	if title == "" {
		return cardResult{skip: skipMissingTitle}
	}

	href, ok := card.Find(s.site.link).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return cardResult{skip: skipMissingLink}
	}
	link, err := canonicalURL(s.base, href, s.site.dropQuery)
	if err != nil {
		return cardResult{skip: skipUnresolvableLink}
	}

	company := cleanText(card.Find(s.site.company).First().Text())
	if company == "" {
		company = model.UnknownCompany
	}

	return cardResult{posting: model.Posting{
		Title:        title,
		Company:      company,
		URL:          link,
		Source:       s.site.source,
		DiscoveredAt: now,
	}}
}

// perKeyword builds one query per non-blank keyword.
func perKeyword(keywords []string, build func(kw string) url.Values) []query {
	qs := make([]query, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		qs = append(qs, query{keyword: kw, params: build(kw)})
	}
	return qs
}

// New builds the adapter for src.
func New(src model.Source, opts Options) (model.Extractor, error) {
	switch src {
	case model.SourceLinkedIn:
		return NewLinkedInAdapter(opts)
	case model.SourceInternshala:
		return NewInternshalaAdapter(opts)
	case model.SourceNaukri:
		return NewNaukriAdapter(opts)
	case model.SourceIndeed:
		return NewIndeedAdapter(opts)
	default:
		return nil, fmt.Errorf("unknown source %q", src)
	}
}
