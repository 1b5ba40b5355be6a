// ABOUTME: Tests for haversine distance
// ABOUTME: Covers symmetry, identity, and known city-pair distances

package geo

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	// Jakarta (-6.2, 106.816) to Bandung (-6.9175, 107.6191) ~ 115-120 km
	d := HaversineKm(-6.2, 106.816, -6.9175, 107.6191)
	if d < 100 || d > 140 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineMeters_ChicagoBlock(t *testing.T) {
	// Two points ~1.1km apart in Chicago.
	d := HaversineMeters(41.8781, -87.6298, 41.8881, -87.6298)
	if d < 1000 || d > 1250 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineSymmetric(t *testing.T) {
	pairs := [][4]float64{
		{41.8781, -87.6298, 51.5074, -0.1278},
		{-33.8688, 151.2093, 35.6762, 139.6503},
		{0, 0, 0, 179.9},
	}
	for _, p := range pairs {
		ab := HaversineMeters(p[0], p[1], p[2], p[3])
		ba := HaversineMeters(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-6 {
			t.Errorf("d(a,b)=%v != d(b,a)=%v", ab, ba)
		}
		if ab < 0 {
			t.Errorf("negative distance %v", ab)
		}
	}
}

func TestHaversineZeroForSamePoint(t *testing.T) {
	if d := HaversineMeters(41.8781, -87.6298, 41.8781, -87.6298); d != 0 {
		t.Errorf("d(a,a) = %v, want 0", d)
	}
}
