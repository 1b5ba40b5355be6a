// ABOUTME: Tests for GeoJSON conversion
// ABOUTME: Covers point features, line geometry, and lng/lat ordering

package geojson

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bradwbu/Trekr/internal/models"
)

func testTrip(t *testing.T, n int) *models.Trip {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	trip := models.NewTrip("brad", models.NewSample(41.8781, -87.6298, base))
	trip.Name = "Lakefront Loop"
	for i := 1; i < n; i++ {
		trip.Append(models.NewSample(41.8781+float64(i)*0.001, -87.6298,
			base.Add(time.Duration(i)*time.Minute)))
	}
	return trip
}

func TestToPointsFeatureCollection(t *testing.T) {
	fc := ToPointsFeatureCollection(testTrip(t, 3))

	if fc.Type != "FeatureCollection" {
		t.Errorf("type = %s", fc.Type)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("got %d features, want 3", len(fc.Features))
	}

	// GeoJSON wants [lng, lat].
	coords := fc.Features[0].Geometry.Coordinates.(PointCoordinates)
	if coords[0] != -87.6298 || coords[1] != 41.8781 {
		t.Errorf("coordinates = %v, want [lng, lat]", coords)
	}
	if fc.Features[0].Properties["trip"] != "Lakefront Loop" {
		t.Error("missing trip property")
	}
}

func TestToLineFeatureCollection(t *testing.T) {
	trip := testTrip(t, 4)
	fc := ToLineFeatureCollection(trip)

	if len(fc.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(fc.Features))
	}
	line := fc.Features[0]
	if line.Geometry.Type != "LineString" {
		t.Errorf("geometry type = %s", line.Geometry.Type)
	}
	coords := line.Geometry.Coordinates.(LineCoordinates)
	if len(coords) != 4 {
		t.Errorf("got %d coordinates, want 4", len(coords))
	}
	if line.Properties["point_count"] != 4 {
		t.Errorf("point_count = %v", line.Properties["point_count"])
	}
}

func TestToLineRequiresTwoSamples(t *testing.T) {
	fc := ToLineFeatureCollection(testTrip(t, 1))
	if len(fc.Features) != 0 {
		t.Errorf("got %d features for single-sample trip, want 0", len(fc.Features))
	}
}

func TestToJSONIsValid(t *testing.T) {
	data, err := ToPointsFeatureCollection(testTrip(t, 2)).ToJSONIndent()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if decoded["type"] != "FeatureCollection" {
		t.Error("decoded type mismatch")
	}
}
