package holiday

import (
	"errors"
	"time"
)

// ErrNoRecords is returned when a build produced no holiday records at all.
var ErrNoRecords = errors.New("no holiday records produced")

// RawEntry is one holiday row as extracted from a source page.
type RawEntry struct {
	DateText string `json:"date_text"`
	Name     string `json:"name"`
	Note     string `json:"note"`
}

// Valid reports whether the entry carries both a date text and a name.
func (e RawEntry) Valid() bool {
	return e.DateText != "" && e.Name != ""
}

// Record is a finalized holiday with all-day boundaries.
// End is exclusive: a one-day holiday on D has End == D+1.
type Record struct {
	Name      string    `json:"name"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Note      string    `json:"note,omitempty"`
	Year      int       `json:"year"`
	DateText  string    `json:"date_text"`
	SourceURL string    `json:"source_url"`
}

// Days returns the number of calendar days the holiday covers.
func (r Record) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Snapshot is the persisted result of one successful build.
type Snapshot struct {
	UpdatedAt string   `json:"updated_at"` // RFC3339 timestamp
	Years     []int    `json:"years"`
	Records   []Record `json:"records"`
}

// NewSnapshot creates a snapshot for records produced at updatedAt.
func NewSnapshot(records []Record, updatedAt time.Time) *Snapshot {
	return &Snapshot{
		UpdatedAt: updatedAt.UTC().Format(time.RFC3339),
		Years:     Years(records),
		Records:   records,
	}
}

// Years returns the distinct record years in order of first appearance.
func Years(records []Record) []int {
	seen := make(map[int]bool)
	years := make([]int, 0, 2)
	for _, r := range records {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	return years
}
