package location

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang/geo/s2"

	"tripmate-core/internal/models"
)

const earthRadiusMeters = 6371000.0

// GoogleProvider resolves device position via the Google Geolocation API.
// Watches are implemented as a polling loop on top of one-shot fixes, with the
// distance threshold enforced locally.
type GoogleProvider struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

type geolocateResponse struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

// NewGoogleProvider creates the provider. The API key is required for every
// fix; absence fails the first call rather than silently degrading.
func NewGoogleProvider() *GoogleProvider {
	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if apiKey == "" {
		log.Println("⚠️  GOOGLE_MAPS_API_KEY not set - location fixes will fail")
	}

	return &GoogleProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://www.googleapis.com/geolocation/v1/geolocate",
	}
}

// RequestPermission validates that the provider is usable. The hosted API has
// no interactive prompt; a missing key is the denial equivalent.
func (p *GoogleProvider) RequestPermission(ctx context.Context) error {
	if p.apiKey == "" {
		return fmt.Errorf("GOOGLE_MAPS_API_KEY environment variable is required for location fixes")
	}
	return nil
}

// CurrentPosition fetches a single position fix
func (p *GoogleProvider) CurrentPosition(ctx context.Context, accuracy Accuracy) (models.Coordinate, error) {
	if p.apiKey == "" {
		return models.Coordinate{}, fmt.Errorf("GOOGLE_MAPS_API_KEY environment variable is required for location fixes")
	}

	payload := map[string]interface{}{
		"considerIp": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("failed to encode request: %w", err)
	}

	fullURL := fmt.Sprintf("%s?key=%s", p.baseURL, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinate{}, fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	var result geolocateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Coordinate{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return models.Coordinate{
		Latitude:  result.Location.Lat,
		Longitude: result.Location.Lng,
	}, nil
}

// Watch polls CurrentPosition at the configured interval, delivering only
// fixes that moved at least MinDistanceMeters from the last delivered one.
func (p *GoogleProvider) Watch(ctx context.Context, opts WatchOptions, fn func(models.Coordinate)) (func(), error) {
	if err := p.RequestPermission(ctx); err != nil {
		return nil, err
	}

	interval := opts.MinInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	watchCtx, cancel := context.WithCancel(ctx)
	var once sync.Once
	stop := func() { once.Do(cancel) }

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last *models.Coordinate
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				fix, err := p.CurrentPosition(watchCtx, opts.Accuracy)
				if err != nil {
					log.Printf("⚠️  Watch fix failed: %v", err)
					continue
				}

				if last != nil && DistanceMeters(*last, fix) < opts.MinDistanceMeters {
					continue
				}

				last = &fix
				fn(fix)
			}
		}
	}()

	return stop, nil
}

// DistanceMeters is the great-circle distance between two coordinates
func DistanceMeters(a, b models.Coordinate) float64 {
	from := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	to := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return from.Distance(to).Radians() * earthRadiusMeters
}
