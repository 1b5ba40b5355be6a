// ABOUTME: GeoJSON generation utilities for trips
// ABOUTME: Converts trip samples to Point or LineString FeatureCollections

package geojson

import (
	"encoding/json"
	"time"

	"github.com/bradwbu/Trekr/internal/models"
)

// FeatureCollection represents a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a GeoJSON Feature.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry represents a GeoJSON Geometry.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// PointCoordinates represents [longitude, latitude] for a Point.
type PointCoordinates [2]float64

// LineCoordinates represents [[lng, lat], ...] for a LineString.
type LineCoordinates []PointCoordinates

// ToPointsFeatureCollection converts a trip's samples to a FeatureCollection
// of Points, one per sample.
func ToPointsFeatureCollection(trip *models.Trip) *FeatureCollection {
	features := make([]Feature, 0, len(trip.Samples))

	for _, s := range trip.Samples {
		props := map[string]interface{}{
			"trip":      trip.Name,
			"timestamp": s.Timestamp.Format(time.RFC3339),
		}
		if s.Altitude != nil {
			props["altitude_m"] = *s.Altitude
		}
		if s.Speed != nil {
			props["speed_mps"] = *s.Speed
		}

		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: PointCoordinates{s.Longitude, s.Latitude},
			},
			Properties: props,
		})
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// ToLineFeatureCollection converts a trip to a single LineString feature
// carrying the trip's stats as properties. Trips with fewer than 2 samples
// yield an empty collection.
func ToLineFeatureCollection(trip *models.Trip) *FeatureCollection {
	fc := &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
	if len(trip.Samples) < 2 {
		return fc
	}

	coords := make(LineCoordinates, len(trip.Samples))
	for i, s := range trip.Samples {
		coords[i] = PointCoordinates{s.Longitude, s.Latitude}
	}

	fc.Features = append(fc.Features, Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "LineString",
			Coordinates: coords,
		},
		Properties: map[string]interface{}{
			"trip":          trip.Name,
			"point_count":   len(trip.Samples),
			"distance_m":    trip.Stats.TotalDistanceMeters,
			"duration_s":    trip.Stats.TotalDurationSeconds,
			"avg_speed_mps": trip.Stats.AverageSpeedMps,
		},
	})
	return fc
}

// ToJSON serializes a FeatureCollection to JSON.
func (fc *FeatureCollection) ToJSON() ([]byte, error) {
	return json.Marshal(fc)
}

// ToJSONIndent serializes a FeatureCollection to indented JSON.
func (fc *FeatureCollection) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(fc, "", "  ")
}
