// ABOUTME: Great-circle distance math for position samples
// ABOUTME: Haversine formula on a spherical earth model

package geo

import "math"

// EarthRadiusMeters is the spherical earth radius used for all distances.
const EarthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance in meters between two
// coordinate pairs.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return EarthRadiusMeters * c
}

// HaversineKm returns the great-circle distance in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	return HaversineMeters(lat1, lng1, lat2, lng2) / 1000
}
