// ABOUTME: Pure trip statistics calculator
// ABOUTME: Derives distance, speed, and elevation aggregates from sample sequences

package stats

import (
	"sort"

	"github.com/bradwbu/Trekr/internal/geo"
	"github.com/bradwbu/Trekr/internal/models"
)

// Compute derives the kinematic aggregates for an ordered sample sequence.
// It performs no I/O and is idempotent: the same samples always yield the
// same stats. Trips with fewer than two samples report zero for everything.
func Compute(samples []models.Sample) models.TripStats {
	var st models.TripStats
	if len(samples) < 2 {
		// A single fix has no extent; max speed from a lone reported
		// speed would suggest motion that distance cannot corroborate.
		return st
	}

	ordered := chronological(samples)

	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		st.TotalDistanceMeters += geo.HaversineMeters(
			prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)

		// Elevation deltas only where both ends carry an altitude.
		// No interpolation across gaps.
		if prev.Altitude != nil && cur.Altitude != nil {
			delta := *cur.Altitude - *prev.Altitude
			if delta > 0 {
				st.ElevationGainMeters += delta
			} else {
				st.ElevationLossMeters += -delta
			}
		}
	}

	// Max speed comes from reported device speeds only; distance-derived
	// substitutes would be corrupted by GPS scatter.
	for _, s := range ordered {
		if s.Speed != nil && *s.Speed > st.MaxSpeedMps {
			st.MaxSpeedMps = *s.Speed
		}
	}

	start := ordered[0].Timestamp
	end := ordered[len(ordered)-1].Timestamp
	st.TotalDurationSeconds = end.Sub(start).Seconds()
	if st.TotalDurationSeconds > 0 {
		st.AverageSpeedMps = st.TotalDistanceMeters / st.TotalDurationSeconds
	}

	return st
}

// chronological returns the samples sorted by timestamp without mutating
// the caller's slice. The sort is stable so duplicate timestamps keep
// their arrival order.
func chronological(samples []models.Sample) []models.Sample {
	ordered := make([]models.Sample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})
	return ordered
}
