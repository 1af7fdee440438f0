package utils

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used on the API.
const DateLayout = "2006-01-02"

// DateToUnix converts a time to Unix seconds at midnight UTC of its calendar date.
func DateToUnix(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

// UnixToDate converts stored Unix seconds back to a UTC time.
func UnixToDate(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders a time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MarketSessionDate returns the trading day the exchange data refers to:
// today, or yesterday before 07:00 local time when today's session has not opened.
func MarketSessionDate(now time.Time) time.Time {
	if now.Hour() < 7 {
		now = now.AddDate(0, 0, -1)
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
