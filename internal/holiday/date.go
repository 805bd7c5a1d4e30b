package holiday

import (
	"regexp"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	// "2月14日–2月22日", "9月1日–2日", "12月30日 ~ 1月1日". The source mixes
	// hyphen, en dash, em dash, tilde and wave dash between the two days.
	rangePattern = regexp.MustCompile(`(\d+)月(\d+)日\s*[-–—~〜]\s*(?:(\d+)月)?(\d+)日`)

	// "1月1日", "4月26日 (27日补假)"; only the first occurrence counts.
	dayPattern = regexp.MustCompile(`(\d+)月(\d+)日`)
)

// ResolvedDate is a month/day pair read from date text. It is not checked
// against month lengths; out-of-range values roll over when turned into a
// time.Time (February 30 becomes March 2).
type ResolvedDate struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

// In returns the civil date for year at midnight UTC.
func (d ResolvedDate) In(year int) time.Time {
	return time.Date(year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// DayRange is the parsed form of a date text. End is the last inclusive day
// and equals Start for single-day texts.
type DayRange struct {
	Start   ResolvedDate `json:"start"`
	End     ResolvedDate `json:"end"`
	IsRange bool         `json:"is_range"`
}

// Span is an all-day interval with an exclusive End.
type Span struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParseDayRange reads a localized date text such as "2月14日–2月22日".
// A range is tried first, then a single day anywhere in the text.
// It returns false when neither form is present.
func ParseDayRange(dateText string) (DayRange, bool) {
	if dateText == "" {
		return DayRange{}, false
	}

	// Full-width digits and punctuation fold to ASCII under NFKC
	text := norm.NFKC.String(dateText)

	if m := rangePattern.FindStringSubmatch(text); m != nil {
		nums, ok := atoiAll(m[1], m[2], m[4])
		if !ok {
			return DayRange{}, false
		}
		start := ResolvedDate{Month: nums[0], Day: nums[1]}

		// An omitted end month means the same month, never the next one
		endMonth := start.Month
		if m[3] != "" {
			em, ok := atoiAll(m[3])
			if !ok {
				return DayRange{}, false
			}
			endMonth = em[0]
		}

		return DayRange{
			Start:   start,
			End:     ResolvedDate{Month: endMonth, Day: nums[2]},
			IsRange: true,
		}, true
	}

	if m := dayPattern.FindStringSubmatch(text); m != nil {
		nums, ok := atoiAll(m[1], m[2])
		if !ok {
			return DayRange{}, false
		}
		day := ResolvedDate{Month: nums[0], Day: nums[1]}
		return DayRange{Start: day, End: day}, true
	}

	return DayRange{}, false
}

// Span resolves the range against year. End is one calendar day after the
// last inclusive day, rolling over month and year boundaries.
func (r DayRange) Span(year int) Span {
	return Span{
		Start: r.Start.In(year),
		End:   r.End.In(year).AddDate(0, 0, 1),
	}
}

// Resolve parses dateText and anchors it in year.
func Resolve(dateText string, year int) (Span, bool) {
	r, ok := ParseDayRange(dateText)
	if !ok {
		return Span{}, false
	}
	return r.Span(year), true
}

func atoiAll(parts ...string) ([]int, bool) {
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
