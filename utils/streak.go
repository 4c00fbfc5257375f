package utils

import (
	"sort"
	"time"
)

// DateLayout is the wire format for contribution dates.
const DateLayout = "2006-01-02"

// ContributionDay is one calendar date with its non-negative activity count.
type ContributionDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// StreakStats holds the derived statistics for a contribution calendar.
// SavedDays is supplied by the caller and passed through unchanged.
type StreakStats struct {
	CurrentStreak  int `json:"current_streak"`
	LongestStreak  int `json:"longest_streak"`
	TotalThisMonth int `json:"total_this_month"`
	TotalThisYear  int `json:"total_this_year"`
	SavedDays      int `json:"saved_days"`
}

// CalculateStreakStats computes streak statistics from contribution days.
// The caller supplies today already normalized to the user's timezone; only
// its calendar date is used. Duplicate dates in the input resolve to the
// last value seen; missing dates count as zero.
//
// A missing or zero entry for today does not break a streak that is still
// alive from yesterday: the day is not over yet, so the walk starts at
// yesterday instead.
func CalculateStreakStats(days []ContributionDay, savedDays int, today time.Time) StreakStats {
	stats := StreakStats{SavedDays: savedDays}
	if len(days) == 0 {
		return stats
	}

	counts := make(map[string]int, len(days))
	for _, d := range days {
		counts[d.Date] = d.Count
	}

	todayKey := today.Format(DateLayout)
	yesterday := today.AddDate(0, 0, -1)

	if counts[todayKey] > 0 {
		stats.CurrentStreak = countConsecutive(counts, today)
	} else if counts[yesterday.Format(DateLayout)] > 0 {
		stats.CurrentStreak = countConsecutive(counts, yesterday)
	}

	stats.LongestStreak = longestStreak(counts)

	for dateStr, count := range counts {
		d, err := time.Parse(DateLayout, dateStr)
		if err != nil {
			continue
		}
		if d.Year() == today.Year() {
			stats.TotalThisYear += count
			if d.Month() == today.Month() {
				stats.TotalThisMonth += count
			}
		}
	}

	return stats
}

// countConsecutive walks backward one calendar day at a time from start,
// counting days with activity, stopping at the first zero or missing day.
func countConsecutive(counts map[string]int, start time.Time) int {
	streak := 0
	for d := start; counts[d.Format(DateLayout)] > 0; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// longestStreak scans all days ascending and tracks the longest run of
// consecutive calendar days with activity. A gap of more than one day resets
// the run to 1, a zero-count day resets it to 0.
func longestStreak(counts map[string]int) int {
	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	// YYYY-MM-DD sorts chronologically as plain strings
	sort.Strings(dates)

	longest, run := 0, 0
	var prev time.Time
	havePrev := false

	for _, dateStr := range dates {
		if counts[dateStr] == 0 {
			run = 0
			havePrev = false
			continue
		}

		d, err := time.Parse(DateLayout, dateStr)
		if err != nil {
			continue
		}

		if havePrev && isNextDay(prev, d) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = d
		havePrev = true
	}

	return longest
}

func isNextDay(prev, cur time.Time) bool {
	return prev.AddDate(0, 0, 1).Format(DateLayout) == cur.Format(DateLayout)
}
