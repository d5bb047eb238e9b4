package dates

import (
	"fmt"
	"strings"
	"time"
)

// Layouts lists the accepted date layouts, tried in order.
var Layouts = []string{
	"2006-01-02", "2006/01/02", "2006.01.02", "20060102",
	"01-02-2006", "01/02/2006", "01.02.2006", "01022006",
	"02-01-06", "02/01/06", "02.01.06", "02012006",
}

// Parse coerces s into a UTC date using the first matching layout.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range Layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("couldn't parse date %q; accepted formats: %s", s, strings.Join(Layouts, ", "))
}

// Millis returns t as epoch milliseconds, the time unit Highstock uses.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// FromMillis is the inverse of Millis, in UTC.
func FromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
