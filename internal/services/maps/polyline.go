package maps

import (
	"math"

	"tripmate-core/internal/models"
)

// DecodePolyline converts an encoded polyline string into a coordinate path.
// Implements Google's Encoded Polyline Algorithm Format at the standard 1e-5 precision.
func DecodePolyline(encoded string) []models.Coordinate {
	if encoded == "" {
		return nil
	}

	var path []models.Coordinate
	index, lat, lng := 0, 0, 0

	for index < len(encoded) {
		latDelta, next := decodeValue(encoded, index)
		index = next
		lat += latDelta

		lngDelta, next := decodeValue(encoded, index)
		index = next
		lng += lngDelta

		path = append(path, models.Coordinate{
			Latitude:  float64(lat) / 1e5,
			Longitude: float64(lng) / 1e5,
		})
	}

	return path
}

// decodeValue reads one signed varint delta starting at index
func decodeValue(encoded string, index int) (int, int) {
	shift, result := 0, 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// EncodePolyline is the inverse of DecodePolyline
func EncodePolyline(path []models.Coordinate) string {
	if len(path) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(path)*4)
	prevLat, prevLng := 0, 0

	for _, point := range path {
		lat := int(math.Round(point.Latitude * 1e5))
		lng := int(math.Round(point.Longitude * 1e5))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lng-prevLng)

		prevLat = lat
		prevLng = lng
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}
