// Package site renders the landing page that links to the feed.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/vietnam-holidays/internal/calendar"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Page is the data shown on the landing page.
type Page struct {
	Name      string
	Emblem    string
	SourceURL string
	FeedHref  string
	Count     int
	Years     []int
	UpdatedAt time.Time // zero before the first successful build
}

// NewPage fills the calendar-level fields of a Page from meta.
func NewPage(meta calendar.Meta, feedHref string) Page {
	return Page{
		Name:      meta.Name,
		Emblem:    meta.Emblem,
		SourceURL: meta.URL,
		FeedHref:  feedHref,
	}
}

// HasData reports whether the page describes a built feed.
func (p Page) HasData() bool {
	return p.Count > 0
}

// YearList joins the years for display, e.g. "2026, 2025".
func (p Page) YearList() string {
	parts := make([]string, len(p.Years))
	for i, y := range p.Years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ", ")
}

// Updated is the update date in UTC, or empty.
func (p Page) Updated() string {
	if p.UpdatedAt.IsZero() {
		return ""
	}
	return p.UpdatedAt.UTC().Format("2006-01-02")
}

// SourceHost is the host of SourceURL, used as link text.
func (p Page) SourceHost() string {
	u, err := url.Parse(p.SourceURL)
	if err != nil || u.Host == "" {
		return p.SourceURL
	}
	return u.Host
}

// Render returns the landing page HTML.
func Render(p Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("rendering index page: %w", err)
	}
	return buf.Bytes(), nil
}
