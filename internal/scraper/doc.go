// Package scraper provides HTTP fetching and HTML extraction for holiday listing pages.
//
// The scraper package fetches a holidays-calendar.net country page and extracts one
// raw entry per holiday row (date text, name, note). It performs no date parsing:
// rows are returned in page order exactly as displayed, trimmed of surrounding
// whitespace, and interpretation is left to the holiday package.
package scraper
