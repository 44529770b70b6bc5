package models

import "fmt"

// Coordinate represents a geographic point
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String formats the coordinate for display (used as the reverse-geocode fallback)
func (c Coordinate) String() string {
	return fmt.Sprintf("%.5f, %.5f", c.Latitude, c.Longitude)
}

// Map converts the coordinate into the document shape the backend stores
func (c Coordinate) Map() map[string]interface{} {
	return map[string]interface{}{
		"latitude":  c.Latitude,
		"longitude": c.Longitude,
	}
}

// ToCoordinate validates an arbitrary backend value into a Coordinate.
// Anything without a numeric latitude AND longitude is dropped (nil), never passed through.
func ToCoordinate(input interface{}) *Coordinate {
	data, ok := input.(map[string]interface{})
	if !ok {
		return nil
	}

	lat, ok := toFloat(data["latitude"])
	if !ok {
		return nil
	}

	lng, ok := toFloat(data["longitude"])
	if !ok {
		return nil
	}

	return &Coordinate{Latitude: lat, Longitude: lng}
}

// ToCoordinates validates a backend array field into a coordinate slice, dropping invalid entries
func ToCoordinates(input interface{}) []Coordinate {
	items, ok := input.([]interface{})
	if !ok {
		return nil
	}

	points := make([]Coordinate, 0, len(items))
	for _, item := range items {
		if point := ToCoordinate(item); point != nil {
			points = append(points, *point)
		}
	}
	return points
}

// toFloat accepts the numeric shapes Firestore hands back (float64 for doubles, int64 for ints)
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
