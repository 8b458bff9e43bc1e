package utils

import (
	"time"
)

// ET is the US Eastern time location used for market hours.
var ET *time.Location

func init() {
	var err error
	ET, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: fixed EST offset if tz database is not available
		ET = time.FixedZone("EST", -5*60*60)
	}
}

// Layouts used across CLI, API and CSV output.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// NowET returns the current time in US Eastern time.
func NowET() time.Time {
	return time.Now().In(ET)
}

// FormatDate formats t as "2006-01-02" in loc (local time when nil).
func FormatDate(t time.Time, loc *time.Location) string {
	return inLoc(t, loc).Format(DateLayout)
}

// FormatDateTime formats t as "2006-01-02 15:04:05" in loc (local time when nil).
func FormatDateTime(t time.Time, loc *time.Location) string {
	return inLoc(t, loc).Format(DateTimeLayout)
}

// EpochMillis returns t as milliseconds since the Unix epoch. The zero
// time maps to 0.
func EpochMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromEpochMillis is the inverse of EpochMillis, in UTC.
func FromEpochMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func inLoc(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t.Local()
	}
	return t.In(loc)
}

// MarketOpenTime returns the regular session open (9:30 AM ET) for a given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, ET)
}

// MarketCloseTime returns the regular session close (4:00 PM ET) for a given date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, ET)
}

// PreMarketStart returns the pre-market session start (4:00 AM ET).
func PreMarketStart(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 4, 0, 0, 0, ET)
}

// MarketStatusAt describes the US equity session at t. Exchange holidays
// are not modelled.
func MarketStatusAt(t time.Time) string {
	now := t.In(ET)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}

	switch {
	case now.Before(PreMarketStart(now)):
		return "CLOSED"
	case now.Before(MarketOpenTime(now)):
		return "PRE-MARKET"
	case now.Before(MarketCloseTime(now)):
		return "OPEN"
	default:
		return "AFTER-HOURS"
	}
}

// MarketStatus returns the current US market status string.
func MarketStatus() string {
	return MarketStatusAt(time.Now())
}
