package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
)

const (
	UserAgent      = "Mozilla/5.0 (compatible; VietnamHolidayBot/1.0)"
	AcceptLanguage = "zh-CN,zh;q=0.9"
	Timeout        = 30 * time.Second
)

// Selectors locate holiday rows and their fields on a listing page.
type Selectors struct {
	Item string
	Date string
	Name string
	Note string
}

// DefaultSelectors matches the div.details > span.hol-item layout.
var DefaultSelectors = Selectors{
	Item: ".hol-item",
	Date: ".hol-date",
	Name: ".hol-name",
	Note: ".hol-info",
}

// FetchError reports a page that could not be retrieved.
// StatusCode is zero for transport failures.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Scraper handles fetching and parsing holiday listing pages
type Scraper struct {
	client         *http.Client
	userAgent      string
	acceptLanguage string
	selectors      Selectors
}

// Option configures a Scraper
type Option func(*Scraper)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithAcceptLanguage overrides the Accept-Language header.
func WithAcceptLanguage(lang string) Option {
	return func(s *Scraper) {
		if lang != "" {
			s.acceptLanguage = lang
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithSelectors overrides the CSS selectors used for extraction.
func WithSelectors(sel Selectors) Option {
	return func(s *Scraper) {
		s.selectors = sel
	}
}

// New creates a new Scraper instance
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client: &http.Client{
			Timeout: Timeout,
		},
		userAgent:      UserAgent,
		acceptLanguage: AcceptLanguage,
		selectors:      DefaultSelectors,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchEntries fetches pageURL and extracts its holiday rows.
// Non-2xx responses and transport failures return a *FetchError.
func (s *Scraper) FetchEntries(ctx context.Context, pageURL string) ([]holiday.RawEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", s.acceptLanguage)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	return s.ExtractEntries(resp.Body)
}

// ExtractEntries reads holiday rows from an HTML document in page order.
// Rows are returned even when fields are empty; validity is the caller's call.
func (s *Scraper) ExtractEntries(r io.Reader) ([]holiday.RawEntry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	entries := make([]holiday.RawEntry, 0)
	doc.Find(s.selectors.Item).Each(func(_ int, item *goquery.Selection) {
		entries = append(entries, holiday.RawEntry{
			DateText: fieldText(item, s.selectors.Date),
			Name:     fieldText(item, s.selectors.Name),
			Note:     fieldText(item, s.selectors.Note),
		})
	})

	return entries, nil
}

// fieldText returns the trimmed text of the first match of selector inside item
func fieldText(item *goquery.Selection, selector string) string {
	return strings.TrimSpace(item.Find(selector).First().Text())
}
