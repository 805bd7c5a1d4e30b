package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	CheckedAt   time.Time            `json:"checked_at"`
	Pages       []holiday.PageResult `json:"pages"`
	Records     []holiday.Record     `json:"records"`
	RecordCount int                  `json:"record_count"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText outputs records grouped by year, years in order of first appearance
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	for _, p := range result.Pages {
		if p.Err != nil {
			fmt.Fprintf(w, "FAILED %s (%d): %v\n", p.URL, p.Year, p.Err)
		}
	}

	if result.RecordCount == 0 {
		fmt.Fprintln(w, "No holidays found.")
		return nil
	}

	byYear := make(map[int][]holiday.Record)
	for _, r := range result.Records {
		byYear[r.Year] = append(byYear[r.Year], r)
	}

	years := holiday.Years(result.Records)
	for _, year := range years {
		records := byYear[year]
		fmt.Fprintf(w, "\n%d (%d holidays):\n", year, len(records))
		for _, r := range records {
			fmt.Fprintf(w, "  %-24s %s\n", formatSpan(r), r.Name)
			if verbose {
				fmt.Fprintf(w, "       Text: %s\n", r.DateText)
				if r.Note != "" {
					fmt.Fprintf(w, "       Note: %s\n", r.Note)
				}
				fmt.Fprintf(w, "       Source: %s\n", r.SourceURL)
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d holidays across %d years\n", result.RecordCount, len(years))

	return nil
}

// formatSpan renders the inclusive day range of r, e.g. "2026-02-14 .. 2026-02-22"
func formatSpan(r holiday.Record) string {
	start := r.Start.Format("2006-01-02")
	if r.Days() == 1 {
		return start
	}
	last := r.End.AddDate(0, 0, -1).Format("2006-01-02")
	return start + " .. " + last
}
