package holiday

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pfrederiksen/vietnam-holidays/internal/logger"
)

var yearSegment = regexp.MustCompile(`^\d{4}$`)

// Source fetches one page and returns its holiday rows in page order.
type Source interface {
	FetchEntries(ctx context.Context, pageURL string) ([]RawEntry, error)
}

// Page is a configured source page. Year 0 means the year is inferred.
type Page struct {
	URL  string `json:"url" yaml:"url"`
	Year int    `json:"year,omitempty" yaml:"year,omitempty"`
}

// PageResult reports what one page contributed to a build.
type PageResult struct {
	URL     string `json:"url"`
	Year    int    `json:"year"`
	Entries int    `json:"entries"`
	Records int    `json:"records"`
	Err     error  `json:"-"`
	Error   string `json:"error,omitempty"`
}

// Result is the outcome of building records across all pages.
type Result struct {
	Records []Record     `json:"records"`
	Pages   []PageResult `json:"pages"`
}

// Err returns ErrNoRecords when the build produced nothing to publish.
func (r *Result) Err() error {
	if len(r.Records) == 0 {
		return ErrNoRecords
	}
	return nil
}

// Builder fetches pages one at a time and turns their entries into records.
type Builder struct {
	source Source

	// CurrentYear is used for pages whose year is neither configured nor
	// present in the URL.
	CurrentYear int
}

// NewBuilder creates a Builder reading from source.
func NewBuilder(source Source, currentYear int) *Builder {
	return &Builder{
		source:      source,
		CurrentYear: currentYear,
	}
}

// YearFromURL returns the first path segment of pageURL that is exactly four
// digits, or fallback when there is none.
func YearFromURL(pageURL string, fallback int) int {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fallback
	}

	for _, seg := range strings.Split(u.Path, "/") {
		if yearSegment.MatchString(seg) {
			year, err := strconv.Atoi(seg)
			if err == nil {
				return year
			}
		}
	}
	return fallback
}

// ResolveYear picks the year for page: explicit, then URL, then CurrentYear.
func (b *Builder) ResolveYear(page Page) int {
	if page.Year > 0 {
		return page.Year
	}
	return YearFromURL(page.URL, b.CurrentYear)
}

// Build processes pages in order. A page that fails to load is logged and
// skipped; records from the other pages are unaffected.
func (b *Builder) Build(ctx context.Context, pages []Page) *Result {
	result := &Result{
		Records: make([]Record, 0),
		Pages:   make([]PageResult, 0, len(pages)),
	}

	for _, page := range pages {
		year := b.ResolveYear(page)
		pr := PageResult{URL: page.URL, Year: year}

		logger.Info("Fetching holiday page", logger.Fields{"url": page.URL, "year": year})

		entries, err := b.source.FetchEntries(ctx, page.URL)
		if err != nil {
			logger.Warn("Holiday page failed, skipping", logger.Fields{"url": page.URL, "year": year}, err)
			pr.Err = err
			pr.Error = err.Error()
			result.Pages = append(result.Pages, pr)
			continue
		}

		records := BuildRecords(entries, year, page.URL)
		pr.Entries = len(entries)
		pr.Records = len(records)
		result.Records = append(result.Records, records...)
		result.Pages = append(result.Pages, pr)

		logger.Info("Parsed holiday page", logger.Fields{
			"url":     page.URL,
			"year":    year,
			"entries": len(entries),
			"records": len(records),
		})
	}

	return result
}

// BuildRecords converts the entries of one page, keeping their order.
// Entries without a name or date text, and entries whose date text cannot be
// read, are skipped.
func BuildRecords(entries []RawEntry, year int, sourceURL string) []Record {
	records := make([]Record, 0, len(entries))

	for _, e := range entries {
		if !e.Valid() {
			continue
		}

		span, ok := Resolve(e.DateText, year)
		if !ok {
			logger.Debug("Skipping entry with unrecognized date", logger.Fields{"date_text": e.DateText, "name": e.Name})
			continue
		}

		// Kept as produced; the text carries no year to fix it with
		if !span.End.After(span.Start) {
			logger.Warn("Holiday ends before it starts", logger.Fields{
				"date_text": e.DateText,
				"name":      e.Name,
				"year":      year,
			})
		}

		records = append(records, Record{
			Name:      e.Name,
			Start:     span.Start,
			End:       span.End,
			Note:      e.Note,
			Year:      year,
			DateText:  e.DateText,
			SourceURL: sourceURL,
		})
	}

	return records
}
