// ABOUTME: Terminal UI formatting utilities
// ABOUTME: Provides human-readable output for trips, stats, and sync states

package ui

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/bradwbu/Trekr/internal/models"
)

// FormatSummary formats a trip summary for list display.
func FormatSummary(s models.Summary) string {
	name := color.GreenString(s.Name)
	when := s.StartTime.Local().Format("Jan 2, 3:04 PM")
	detail := fmt.Sprintf("%s, %d samples", FormatDistance(s.Stats.TotalDistanceMeters), s.SampleCount)

	state := FormatSyncState(s.SyncState)
	if s.Open {
		state = color.YellowString("recording")
	}
	return fmt.Sprintf("%s  %s - %s [%s]",
		color.New(color.Faint).Sprint(s.ID.String()[:8]),
		name,
		color.New(color.Faint).Sprintf("%s, %s", when, detail),
		state)
}

// FormatTrip formats a full trip for detail display.
func FormatTrip(t *models.Trip) string {
	out := fmt.Sprintf("%s\n", color.GreenString(t.Name))
	if t.Description != "" {
		out += fmt.Sprintf("  %s\n", t.Description)
	}
	out += fmt.Sprintf("  %s -> %s\n",
		t.StartTime.Local().Format("Jan 2, 2006 3:04 PM"),
		t.EndTime.Local().Format("3:04 PM"))
	out += fmt.Sprintf("  Distance:  %s\n", FormatDistance(t.Stats.TotalDistanceMeters))
	out += fmt.Sprintf("  Duration:  %s\n", FormatDuration(t.Stats.TotalDurationSeconds))
	out += fmt.Sprintf("  Avg speed: %.1f km/h\n", t.Stats.AverageSpeedMps*3.6)
	if t.Stats.MaxSpeedMps > 0 {
		out += fmt.Sprintf("  Max speed: %.1f km/h\n", t.Stats.MaxSpeedMps*3.6)
	}
	if t.Stats.ElevationGainMeters > 0 || t.Stats.ElevationLossMeters > 0 {
		out += fmt.Sprintf("  Elevation: +%.0fm / -%.0fm\n",
			t.Stats.ElevationGainMeters, t.Stats.ElevationLossMeters)
	}
	out += fmt.Sprintf("  Samples:   %d\n", len(t.Samples))
	out += fmt.Sprintf("  Sync:      %s", FormatSyncState(t.SyncState))
	return out
}

// FormatSyncState colors a sync state for display.
func FormatSyncState(s models.SyncState) string {
	switch s {
	case models.SyncSynced:
		return color.GreenString(string(s))
	case models.SyncConflict, models.SyncRejected:
		return color.RedString(string(s))
	case models.SyncPendingPush:
		return color.YellowString(string(s))
	default:
		return color.New(color.Faint).Sprint(string(s))
	}
}

// FormatDistance renders meters as meters or kilometers.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// FormatDuration renders seconds as a compact h/m/s string.
func FormatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatRelativeTime formats a time as relative to now.
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	// Handle future times (clock skew, bad data)
	if diff < 0 {
		return color.YellowString("in the future")
	}

	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(diff.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
