package trip

import "errors"

var (
	// ErrUnauthenticated is returned when an operation requires a signed-in user
	ErrUnauthenticated = errors.New("please sign in first")

	// ErrTripNotFound is returned when a trip code does not resolve to a backend record
	ErrTripNotFound = errors.New("trip code not found")

	// ErrCodeGenerationExhausted is returned when the unique-code retry budget runs out
	ErrCodeGenerationExhausted = errors.New("unable to create trip code, please try again")

	// ErrPermissionDenied is returned when device location permission is refused
	ErrPermissionDenied = errors.New("location permission is required")
)
