package geocode

import (
	"fmt"
	"math"
)

// Point is an immutable latitude/longitude pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewPoint validates the coordinate ranges.
func NewPoint(lat, lng float64) (Point, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return Point{}, fmt.Errorf("latitude %v out of range", lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return Point{}, fmt.Errorf("longitude %v out of range", lng)
	}
	return Point{Latitude: lat, Longitude: lng}, nil
}

// Fields renders the point as the document value written back as location.
func (p Point) Fields() map[string]any {
	return map[string]any{
		"latitude":  p.Latitude,
		"longitude": p.Longitude,
	}
}
