package utils

import (
	"testing"
	"time"
)

func TestMarketOpenClose(t *testing.T) {
	date := time.Date(2026, 2, 18, 12, 0, 0, 0, ET)

	open := MarketOpenTime(date)
	if open.Hour() != 9 || open.Minute() != 30 {
		t.Errorf("MarketOpenTime = %v, want 09:30", open)
	}

	close := MarketCloseTime(date)
	if close.Hour() != 16 || close.Minute() != 0 {
		t.Errorf("MarketCloseTime = %v, want 16:00", close)
	}
}

func TestMarketStatusAt(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"weekday session", time.Date(2026, 2, 18, 10, 0, 0, 0, ET), "OPEN"},
		{"pre-market", time.Date(2026, 2, 18, 7, 0, 0, 0, ET), "PRE-MARKET"},
		{"overnight", time.Date(2026, 2, 18, 2, 0, 0, 0, ET), "CLOSED"},
		{"after hours", time.Date(2026, 2, 18, 17, 0, 0, 0, ET), "AFTER-HOURS"},
		{"saturday", time.Date(2026, 2, 21, 10, 0, 0, 0, ET), "CLOSED (Weekend)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarketStatusAt(tt.at); got != tt.want {
				t.Errorf("MarketStatusAt(%v) = %q, want %q", tt.at, got, tt.want)
			}
		})
	}
}

func TestFormatDateTime(t *testing.T) {
	ts := time.Date(2026, 3, 5, 14, 7, 9, 0, time.UTC)
	if got := FormatDateTime(ts, time.UTC); got != "2026-03-05 14:07:09" {
		t.Errorf("FormatDateTime = %q", got)
	}
	if got := FormatDate(ts, time.UTC); got != "2026-03-05" {
		t.Errorf("FormatDate = %q", got)
	}
}

func TestEpochMillis(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	if got := EpochMillis(ts); got != 1700000000123 {
		t.Errorf("EpochMillis = %d", got)
	}
	if got := EpochMillis(time.Time{}); got != 0 {
		t.Errorf("EpochMillis(zero) = %d, want 0", got)
	}
}

func TestFromEpochMillis(t *testing.T) {
	got := FromEpochMillis(1700000000123)
	if !got.Equal(time.UnixMilli(1700000000123)) {
		t.Errorf("FromEpochMillis = %v", got)
	}
	if got.Location() != time.UTC {
		t.Errorf("FromEpochMillis location = %v, want UTC", got.Location())
	}
	if !FromEpochMillis(0).IsZero() {
		t.Error("FromEpochMillis(0) should be the zero time")
	}
}
