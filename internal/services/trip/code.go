package trip

import (
	"context"
	"math/rand"
)

const (
	tripCodeLength   = 6
	tripCodeAttempts = 10
	tripCodeCharset  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// generateTripCode returns a random 6-character uppercase alphanumeric code
func generateTripCode() string {
	code := make([]byte, tripCodeLength)
	for i := range code {
		code[i] = tripCodeCharset[rand.Intn(len(tripCodeCharset))]
	}
	return string(code)
}

// uniqueTripCode generates codes until one is free of a backend record,
// giving up after the retry budget
func uniqueTripCode(ctx context.Context, backend Backend) (string, error) {
	for attempt := 0; attempt < tripCodeAttempts; attempt++ {
		code := generateTripCode()

		exists, err := backend.TripExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}

	return "", ErrCodeGenerationExhausted
}
