// Package route holds small geometry helpers for working with a resolved
// route polyline. The service never calls a routing or geocoding API; it
// only consumes coordinate sequences the caller already resolved.
package route

import "math"

// Coordinate is a single point on a resolved route polyline.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocateAt returns the approximate coordinate at targetMiles along a route of
// totalMiles, by fractional index into the polyline. An empty polyline yields
// the degenerate (0,0) coordinate.
func LocateAt(coords []Coordinate, targetMiles, totalMiles float64) Coordinate {
	if len(coords) == 0 {
		return Coordinate{}
	}
	if targetMiles <= 0 {
		return coords[0]
	}
	if totalMiles <= 0 || targetMiles >= totalMiles {
		return coords[len(coords)-1]
	}
	idx := int(targetMiles / totalMiles * float64(len(coords)-1))
	if idx < 0 {
		idx = 0
	}
	if idx > len(coords)-1 {
		idx = len(coords) - 1
	}
	return coords[idx]
}

// PathLengthMiles sums the haversine length of the polyline.
func PathLengthMiles(coords []Coordinate) float64 {
	total := 0.0
	for i := 0; i < len(coords)-1; i++ {
		total += haversineMeters(coords[i].Latitude, coords[i].Longitude, coords[i+1].Latitude, coords[i+1].Longitude)
	}
	return total / 1609.344
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
