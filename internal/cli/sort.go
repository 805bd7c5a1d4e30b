package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortBySource SortOrder = "source"
	SortByDate   SortOrder = "date"
	SortByName   SortOrder = "name"
)

// ParseSortOrder validates a --sort value.
func ParseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortBySource, SortByDate, SortByName:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'source', 'date' or 'name')", s)
	}
}

// sortRecords sorts records in place. SortBySource keeps page order.
func sortRecords(records []holiday.Record, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByDate(records[i], records[j])
		})
	case SortByName:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].Name != records[j].Name {
				return records[i].Name < records[j].Name
			}
			// If names are equal, sort by date
			return compareByDate(records[i], records[j])
		})
	}
}

// compareByDate orders by start, then by end
func compareByDate(i, j holiday.Record) bool {
	if !i.Start.Equal(j.Start) {
		return i.Start.Before(j.Start)
	}
	return i.End.Before(j.End)
}
