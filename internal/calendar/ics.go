// Package calendar renders holiday records as an iCalendar (RFC 5545) subscription feed.
package calendar

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
)

const maxLineOctets = 75

// uidNamespace scopes event UIDs to this feed
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://holidays-calendar.net/vietnam-holidays"))

// Meta is the constant calendar-level metadata of the feed.
type Meta struct {
	Name            string        `yaml:"name"`
	Description     string        `yaml:"description"`
	Timezone        string        `yaml:"timezone"`
	ProductID       string        `yaml:"product_id"`
	URL             string        `yaml:"url"`
	Emblem          string        `yaml:"emblem"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// DefaultMeta returns the metadata of the Vietnam public holiday feed.
func DefaultMeta() Meta {
	return Meta{
		Name:            "越南法定节假日",
		Description:     "越南法定节假日日历 - 数据来源: holidays-calendar.net",
		Timezone:        "Asia/Ho_Chi_Minh",
		ProductID:       "-//vietnam-holidays//ical-feed//EN",
		URL:             "https://holidays-calendar.net/calendar_zh_cn/vietnam_zh_cn.html",
		Emblem:          "🇻🇳",
		RefreshInterval: 24 * time.Hour,
	}
}

// GenerateFeed renders records as one calendar of all-day events, in order.
// stamp is written as DTSTAMP on every event.
func GenerateFeed(meta Meta, records []holiday.Record, stamp time.Time) string {
	var ics strings.Builder

	writeLine(&ics, "BEGIN:VCALENDAR")
	writeLine(&ics, "VERSION:2.0")
	writeLine(&ics, "PRODID:"+meta.ProductID)
	writeLine(&ics, "CALSCALE:GREGORIAN")
	writeLine(&ics, "METHOD:PUBLISH")

	if meta.Name != "" {
		writeLine(&ics, "NAME:"+escapeICS(meta.Name))
		writeLine(&ics, "X-WR-CALNAME:"+escapeICS(meta.Name))
	}
	if meta.Description != "" {
		writeLine(&ics, "DESCRIPTION:"+escapeICS(meta.Description))
		writeLine(&ics, "X-WR-CALDESC:"+escapeICS(meta.Description))
	}
	if meta.Timezone != "" {
		writeLine(&ics, "TIMEZONE-ID:"+meta.Timezone)
		writeLine(&ics, "X-WR-TIMEZONE:"+meta.Timezone)
	}
	if meta.URL != "" {
		writeLine(&ics, "URL:"+meta.URL)
	}
	if meta.RefreshInterval > 0 {
		interval := formatDuration(meta.RefreshInterval)
		writeLine(&ics, "REFRESH-INTERVAL;VALUE=DURATION:"+interval)
		writeLine(&ics, "X-PUBLISHED-TTL:"+interval)
	}

	dtstamp := formatICSTime(stamp)
	seen := make(map[string]int)

	for _, r := range records {
		key := uidKey(r)
		occurrence := seen[key]
		seen[key]++

		writeLine(&ics, "BEGIN:VEVENT")
		writeLine(&ics, "UID:"+EventUID(r, occurrence))
		writeLine(&ics, "DTSTAMP:"+dtstamp)
		writeLine(&ics, "DTSTART;VALUE=DATE:"+formatICSDate(r.Start))
		writeLine(&ics, "DTEND;VALUE=DATE:"+formatICSDate(r.End))
		writeLine(&ics, "SUMMARY:"+escapeICS(Summary(meta, r)))
		writeLine(&ics, "DESCRIPTION:"+escapeICS(r.Note))
		if meta.URL != "" {
			writeLine(&ics, "URL:"+meta.URL)
		}
		// Holidays don't block time
		writeLine(&ics, "TRANSP:TRANSPARENT")
		writeLine(&ics, "END:VEVENT")
	}

	writeLine(&ics, "END:VCALENDAR")

	return ics.String()
}

// Summary is the event title: the emblem followed by the holiday name.
func Summary(meta Meta, r holiday.Record) string {
	if meta.Emblem == "" {
		return r.Name
	}
	return meta.Emblem + " " + r.Name
}

// EventUID returns a stable UID for r. occurrence distinguishes identical
// records coming from the same page.
func EventUID(r holiday.Record, occurrence int) string {
	key := uidKey(r)
	if occurrence > 0 {
		key = fmt.Sprintf("%s|%d", key, occurrence)
	}
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@vietnam-holidays"
}

func uidKey(r holiday.Record) string {
	return strings.Join([]string{
		r.SourceURL,
		formatICSDate(r.Start),
		formatICSDate(r.End),
		r.Name,
	}, "|")
}

// writeLine writes one content line, folded at 75 octets
func writeLine(b *strings.Builder, line string) {
	b.WriteString(foldLine(line))
}

// foldLine splits a content line into 75-octet chunks without breaking
// UTF-8 sequences; continuation lines start with a space.
func foldLine(line string) string {
	if len(line) <= maxLineOctets {
		return line + "\r\n"
	}

	var b strings.Builder
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		// The leading space counts toward the limit
		limit = maxLineOctets - 1
	}
	b.WriteString(line)
	b.WriteString("\r\n")
	return b.String()
}

// formatICSTime formats a time.Time as an iCalendar UTC datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// formatICSDate formats the civil date of t as an iCalendar DATE value
func formatICSDate(t time.Time) string {
	return t.Format("20060102")
}

// formatDuration formats d as an RFC 5545 duration (P1W, P1D, PT6H, PT30M)
func formatDuration(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d%(7*day) == 0:
		return fmt.Sprintf("P%dW", d/(7*day))
	case d%day == 0:
		return fmt.Sprintf("P%dD", d/day)
	case d%time.Hour == 0:
		return fmt.Sprintf("PT%dH", d/time.Hour)
	default:
		return fmt.Sprintf("PT%dM", int(d.Minutes()))
	}
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
