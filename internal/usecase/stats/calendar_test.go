package stats

import (
	"testing"
	"time"
)

func TestIsLastDayOfMonth(t *testing.T) {
	cases := []struct {
		date time.Time
		want bool
	}{
		{time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC), true},
		{time.Date(2025, time.January, 30, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2025, time.February, 28, 23, 59, 0, 0, time.UTC), true},
		{time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, time.April, 29, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := IsLastDayOfMonth(tc.date); got != tc.want {
			t.Fatalf("IsLastDayOfMonth(%s) = %v, ожидали %v", tc.date.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.February, 28},
		{2024, time.February, 29},
		{2000, time.February, 29},
		{1900, time.February, 28},
		{2025, time.April, 30},
		{2025, time.July, 31},
	}
	for _, tc := range cases {
		if got := DaysInMonth(tc.year, tc.month); got != tc.want {
			t.Fatalf("DaysInMonth(%d, %s) = %d, ожидали %d", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestMonthStart(t *testing.T) {
	got := MonthStart(time.Date(2025, time.March, 17, 15, 4, 5, 0, time.UTC))
	want := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ожидали %s, получили %s", want, got)
	}
}
