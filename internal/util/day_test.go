package util

import (
	"testing"
	"time"
)

func TestDaysBetween(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		a    time.Time
		b    time.Time
		want int
	}{
		{"same day", time.Date(2026, 3, 10, 8, 0, 0, 0, loc), time.Date(2026, 3, 10, 23, 0, 0, 0, loc), 0},
		{"next day", time.Date(2026, 3, 10, 23, 59, 0, 0, loc), time.Date(2026, 3, 11, 0, 1, 0, 0, loc), 1},
		{"backwards", time.Date(2026, 3, 11, 0, 0, 0, 0, loc), time.Date(2026, 3, 1, 0, 0, 0, 0, loc), -10},
		{"leap year", time.Date(2024, 2, 28, 0, 0, 0, 0, loc), time.Date(2024, 3, 1, 0, 0, 0, 0, loc), 2},
		{"year boundary", time.Date(2025, 12, 31, 0, 0, 0, 0, loc), time.Date(2026, 1, 1, 0, 0, 0, 0, loc), 1},
		{"centuries apart", time.Date(1700, 1, 1, 0, 0, 0, 0, loc), time.Date(2026, 10, 19, 12, 0, 0, 0, loc), 119360},
		{"centuries backwards", time.Date(2026, 10, 19, 0, 0, 0, 0, loc), time.Date(1700, 1, 1, 0, 0, 0, 0, loc), -119360},
		{"far future", time.Date(2026, 3, 15, 0, 0, 0, 0, loc), time.Date(2400, 3, 1, 0, 0, 0, 0, loc), 136587},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.a, tt.b); got != tt.want {
				t.Errorf("DaysBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2026-03-08 is the spring-forward day in New York (23 hour day)
	a := time.Date(2026, 3, 7, 0, 0, 0, 0, loc)
	b := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	if got := DaysBetween(a, b); got != 2 {
		t.Errorf("Expected 2 days across DST, got %d", got)
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*60*60)

	got, err := ParseDate("2026-03-10", loc)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !got.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, loc)) {
		t.Errorf("Unexpected date %v", got)
	}

	// 03:00 UTC is still the previous evening in UTC-6
	got, err = ParseDate("2026-03-10T03:00:00.000Z", loc)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !got.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, loc)) {
		t.Errorf("Expected 2026-03-09 in UTC-6, got %v", got)
	}

	if _, err := ParseDate("10/03/2026", loc); err == nil {
		t.Error("Expected error for unsupported format")
	}
	if _, err := ParseDate("", loc); err == nil {
		t.Error("Expected error for empty value")
	}
}

func TestStartAndEndOfDay(t *testing.T) {
	ts := time.Date(2026, 5, 4, 15, 30, 12, 99, time.UTC)
	if got := StartOfDay(ts); !got.Equal(time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("StartOfDay() = %v", got)
	}
	if got := EndOfDay(ts); !got.Equal(time.Date(2026, 5, 4, 23, 59, 59, 999999999, time.UTC)) {
		t.Errorf("EndOfDay() = %v", got)
	}
}

func TestIsFutureDay(t *testing.T) {
	today := time.Date(2026, 5, 4, 22, 0, 0, 0, time.UTC)
	if IsFutureDay(time.Date(2026, 5, 4, 23, 0, 0, 0, time.UTC), today) {
		t.Error("Same day should not be future")
	}
	if !IsFutureDay(time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), today) {
		t.Error("Next day should be future")
	}
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := FixedClock{At: at}
	if !clock.Now().Equal(at) {
		t.Errorf("Expected %v, got %v", at, clock.Now())
	}
}
