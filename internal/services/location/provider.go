// Package location abstracts the device position source behind a Provider so
// the tracking engine can run against the real geolocation service or a stub.
package location

import (
	"context"
	"time"

	"tripmate-core/internal/models"
)

// Accuracy selects how hard the provider should work for a fix
type Accuracy int

const (
	AccuracyBalanced Accuracy = iota
	AccuracyHighest
)

// WatchOptions configure a continuous position watch
type WatchOptions struct {
	Accuracy          Accuracy
	MinInterval       time.Duration
	MinDistanceMeters float64
}

// Provider is the device location source consumed by the tracking engine
type Provider interface {
	// RequestPermission asks for location access. A denial is an error.
	RequestPermission(ctx context.Context) error

	// CurrentPosition fetches a single position fix
	CurrentPosition(ctx context.Context, accuracy Accuracy) (models.Coordinate, error)

	// Watch delivers continuous position updates to fn, filtered by the
	// options' interval and distance thresholds. The returned handle stops
	// the watch and is safe to call more than once.
	Watch(ctx context.Context, opts WatchOptions, fn func(models.Coordinate)) (func(), error)
}
