package route

import (
	"math"
	"testing"
)

func TestLocateAt(t *testing.T) {
	coords := []Coordinate{
		{Latitude: 41.88, Longitude: -87.63},
		{Latitude: 41.50, Longitude: -90.50},
		{Latitude: 41.25, Longitude: -95.93},
		{Latitude: 39.74, Longitude: -104.99},
	}
	if got := LocateAt(coords, 0, 1000); got != coords[0] {
		t.Fatalf("mile 0: got %+v", got)
	}
	if got := LocateAt(coords, 1000, 1000); got != coords[3] {
		t.Fatalf("final mile: got %+v", got)
	}
	if got := LocateAt(coords, 1500, 1000); got != coords[3] {
		t.Fatalf("beyond end: got %+v", got)
	}
	mid := LocateAt(coords, 500, 1000)
	if mid != coords[1] {
		t.Fatalf("midpoint: got %+v", mid)
	}
}

func TestLocateAtEmptyPolyline(t *testing.T) {
	if got := LocateAt(nil, 100, 1000); got != (Coordinate{}) {
		t.Fatalf("empty polyline: got %+v", got)
	}
}

func TestPathLengthMiles(t *testing.T) {
	// One degree of latitude is about 69 miles.
	coords := []Coordinate{
		{Latitude: 40, Longitude: -100},
		{Latitude: 41, Longitude: -100},
	}
	got := PathLengthMiles(coords)
	if math.Abs(got-69.1) > 0.5 {
		t.Fatalf("1 degree latitude: got %.2f miles", got)
	}
	if PathLengthMiles(nil) != 0 {
		t.Fatal("empty polyline should have zero length")
	}
}
