package utils

import "time"

// DayFormat is the canonical calendar-date key used across the ledger and
// metrics stores.
const DayFormat = "2006-01-02"

// DayKey derives the calendar date (UTC) of a timestamp.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// ParseDay validates a YYYY-MM-DD string.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayFormat, s)
}
