package training

import (
	"fmt"
	"math"
	"time"
)

const milesPerMeter = 0.000621371

// MetersToMiles converts meters to miles, rounded to 1 decimal.
func MetersToMiles(meters float64) float64 {
	return math.Round(meters*milesPerMeter*10) / 10
}

// SecondsToMinutes converts seconds to whole minutes, half rounds up (90s -> 2).
func SecondsToMinutes(seconds int) int {
	return int(math.Round(float64(seconds) / 60))
}

// PacePerMile returns the pace in "M:SS" format, "0:00" when either input is zero.
func PacePerMile(distanceMeters float64, durationSeconds int) string {
	if distanceMeters == 0 || durationSeconds == 0 {
		return "0:00"
	}
	return formatPace(float64(durationSeconds) / 60 / (distanceMeters * milesPerMeter))
}

// PacePerKm returns the pace in "M:SS" format, "0:00" when either input is zero.
func PacePerKm(distanceMeters float64, durationSeconds int) string {
	if distanceMeters == 0 || durationSeconds == 0 {
		return "0:00"
	}
	return formatPace(float64(durationSeconds) / 60 / (distanceMeters / 1000))
}

// seconds are truncated, not rounded, the TRMNL display templates rely on it
func formatPace(minutesPerUnit float64) string {
	mins := int(minutesPerUnit)
	secs := int((minutesPerUnit - float64(mins)) * 60)
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// WeekStart returns the most recent Monday at local midnight relative to now.
// If now is a Monday, it returns that same day at midnight.
func WeekStart(now time.Time) time.Time {
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
}

// WeekLabel renders a human readable label for the current Monday-Sunday
// week, e.g. "Week of Dec 2-8, 2025".
func WeekLabel(now time.Time) string {
	weekStart := WeekStart(now)
	weekEnd := weekStart.AddDate(0, 0, 6)
	return fmt.Sprintf("Week of %s-%s", weekStart.Format("Jan 2"), weekEnd.Format("2, 2006"))
}

// WeeksUntilEvent returns the number of complete weeks between now and the
// event date (ISO date or full timestamp). Past events and unparsable dates
// both yield 0, a misconfigured event date must not break the dashboard.
func WeeksUntilEvent(eventDate string, now time.Time) int {
	event, err := time.ParseInLocation("2006-01-02", eventDate, now.Location())
	if err != nil {
		event, err = time.Parse(time.RFC3339, eventDate)
		if err != nil {
			return 0
		}
	}

	daysDiff := int(event.Sub(now).Hours() / 24)
	weeks := daysDiff / 7
	if weeks < 0 {
		return 0
	}
	return weeks
}

// ProgressPercentage returns round(actual/target*100) clamped to [0, 100].
// A zero target yields 0 rather than a division by zero.
func ProgressPercentage(actualMiles, targetMiles float64) int {
	if targetMiles == 0 {
		return 0
	}
	percentage := int(math.Round(actualMiles / targetMiles * 100))
	if percentage > 100 {
		return 100
	}
	return percentage
}

// FormatDateForDisplay renders an ISO date or timestamp as e.g. "Mon, Dec 2".
// Unparsable input is returned unchanged.
func FormatDateForDisplay(isoDate string) string {
	parsed, err := time.Parse(time.RFC3339, isoDate)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", isoDate)
		if err != nil {
			return isoDate
		}
	}
	return parsed.Format("Mon, Jan 2")
}
