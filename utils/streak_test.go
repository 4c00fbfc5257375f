package utils

import (
	"testing"
	"time"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func TestCalculateStreakStats_Empty(t *testing.T) {
	stats := CalculateStreakStats(nil, 3, time.Now())
	if stats.CurrentStreak != 0 || stats.LongestStreak != 0 {
		t.Errorf("expected zero streaks, got %+v", stats)
	}
	if stats.SavedDays != 3 {
		t.Errorf("saved days must pass through, got %d", stats.SavedDays)
	}
}

func TestCalculateStreakStats_CurrentStreak(t *testing.T) {
	days := []ContributionDay{
		{Date: "2024-01-03", Count: 2},
		{Date: "2024-01-04", Count: 1},
		{Date: "2024-01-05", Count: 4},
	}

	stats := CalculateStreakStats(days, 0, day(t, "2024-01-05"))
	if stats.CurrentStreak != 3 {
		t.Errorf("current streak = %d, want 3", stats.CurrentStreak)
	}
}

func TestCalculateStreakStats_TodayMissingFallsBackToYesterday(t *testing.T) {
	days := []ContributionDay{
		{Date: "2024-01-03", Count: 1},
		{Date: "2024-01-04", Count: 1},
	}

	// No entry for the 5th yet: the day is not over, streak stays alive.
	stats := CalculateStreakStats(days, 0, day(t, "2024-01-05"))
	if stats.CurrentStreak != 2 {
		t.Errorf("current streak = %d, want 2", stats.CurrentStreak)
	}
}

func TestCalculateStreakStats_TodayZeroFallsBackToYesterday(t *testing.T) {
	days := []ContributionDay{
		{Date: "2024-01-04", Count: 1},
		{Date: "2024-01-05", Count: 0},
	}

	stats := CalculateStreakStats(days, 0, day(t, "2024-01-05"))
	if stats.CurrentStreak != 1 {
		t.Errorf("current streak = %d, want 1", stats.CurrentStreak)
	}
}

func TestCalculateStreakStats_BrokenStreak(t *testing.T) {
	days := []ContributionDay{
		{Date: "2024-01-01", Count: 1},
		{Date: "2024-01-02", Count: 1},
		{Date: "2024-01-03", Count: 0},
		{Date: "2024-01-05", Count: 1},
	}

	stats := CalculateStreakStats(days, 0, day(t, "2024-01-05"))
	if stats.CurrentStreak != 1 {
		t.Errorf("current streak = %d, want 1", stats.CurrentStreak)
	}
	if stats.LongestStreak != 2 {
		t.Errorf("longest streak = %d, want 2", stats.LongestStreak)
	}
}

func TestCalculateStreakStats_LongestStreakGapReset(t *testing.T) {
	days := []ContributionDay{
		{Date: "2024-02-01", Count: 1},
		{Date: "2024-02-02", Count: 1},
		{Date: "2024-02-03", Count: 1},
		// two day gap
		{Date: "2024-02-06", Count: 1},
		{Date: "2024-02-07", Count: 1},
	}

	stats := CalculateStreakStats(days, 0, day(t, "2024-02-07"))
	if stats.LongestStreak != 3 {
		t.Errorf("longest streak = %d, want 3", stats.LongestStreak)
	}
	if stats.CurrentStreak != 2 {
		t.Errorf("current streak = %d, want 2", stats.CurrentStreak)
	}
}

func TestCalculateStreakStats_DuplicateDatesLastWins(t *testing.T) {
	days := []ContributionDay{
		{Date: "2024-01-05", Count: 0},
		{Date: "2024-01-05", Count: 3},
	}

	stats := CalculateStreakStats(days, 0, day(t, "2024-01-05"))
	if stats.CurrentStreak != 1 {
		t.Errorf("current streak = %d, want 1", stats.CurrentStreak)
	}
	if stats.TotalThisYear != 3 {
		t.Errorf("total this year = %d, want 3", stats.TotalThisYear)
	}
}

func TestCalculateStreakStats_Totals(t *testing.T) {
	days := []ContributionDay{
		{Date: "2023-12-31", Count: 5},
		{Date: "2024-01-15", Count: 2},
		{Date: "2024-02-01", Count: 3},
		{Date: "2024-02-10", Count: 4},
	}

	stats := CalculateStreakStats(days, 0, day(t, "2024-02-10"))
	if stats.TotalThisYear != 9 {
		t.Errorf("total this year = %d, want 9", stats.TotalThisYear)
	}
	if stats.TotalThisMonth != 7 {
		t.Errorf("total this month = %d, want 7", stats.TotalThisMonth)
	}
}

func TestCalculateStreakStats_StreakAcrossMonthBoundary(t *testing.T) {
	days := []ContributionDay{
		{Date: "2024-01-30", Count: 1},
		{Date: "2024-01-31", Count: 1},
		{Date: "2024-02-01", Count: 1},
	}

	stats := CalculateStreakStats(days, 0, day(t, "2024-02-01"))
	if stats.CurrentStreak != 3 {
		t.Errorf("current streak = %d, want 3", stats.CurrentStreak)
	}
	if stats.LongestStreak != 3 {
		t.Errorf("longest streak = %d, want 3", stats.LongestStreak)
	}
}

func TestCalculateStreakStats_LeapDay(t *testing.T) {
	days := []ContributionDay{
		{Date: "2024-02-28", Count: 1},
		{Date: "2024-02-29", Count: 1},
		{Date: "2024-03-01", Count: 1},
	}

	stats := CalculateStreakStats(days, 0, day(t, "2024-03-01"))
	if stats.CurrentStreak != 3 {
		t.Errorf("current streak = %d, want 3", stats.CurrentStreak)
	}
}
