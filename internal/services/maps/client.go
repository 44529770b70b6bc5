package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"tripmate-core/internal/models"
)

// Client handles geocoding, places and directions lookups using the Google Maps API
type Client struct {
	apiKey     string
	httpClient *http.Client

	// Endpoint roots, overridable in tests
	geocodeURL      string
	directionsURL   string
	autocompleteURL string
	placeDetailsURL string
}

// Place is a resolved location: a human-readable address plus its coordinate
type Place struct {
	Address  string            `json:"address"`
	Location models.Coordinate `json:"location"`
}

// Suggestion is one autocomplete result for a partial query
type Suggestion struct {
	PlaceID     string `json:"placeId"`
	Description string `json:"description"`
	IsFallback  bool   `json:"isFallback"`
}

// SuggestionOptions bias the autocomplete search
type SuggestionOptions struct {
	Language     string
	BiasLocation *models.Coordinate
	RadiusMeters int
}

// googleStatusResponse is the provider status field shared by every Maps API response
type googleGeocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID          string `json:"place_id"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type googleDirectionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

type googleAutocompleteResponse struct {
	Status      string `json:"status"`
	Predictions []struct {
		PlaceID     string `json:"place_id"`
		Description string `json:"description"`
	} `json:"predictions"`
}

type googlePlaceDetailsResponse struct {
	Status string `json:"status"`
	Result struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"result"`
}

// ErrNotFound is returned when a query or place id does not resolve to anything
var ErrNotFound = fmt.Errorf("place not found")

// NewClient creates a maps client. The API key is required for every call;
// a missing key is a configuration error at call time, not a runtime fallback.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY environment variable is required")
	}
	return newClientWithKey(apiKey), nil
}

func newClientWithKey(apiKey string) *Client {
	return &Client{
		apiKey:          apiKey,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		geocodeURL:      "https://maps.googleapis.com/maps/api/geocode/json",
		directionsURL:   "https://maps.googleapis.com/maps/api/directions/json",
		autocompleteURL: "https://maps.googleapis.com/maps/api/place/autocomplete/json",
		placeDetailsURL: "https://maps.googleapis.com/maps/api/place/details/json",
	}
}

// Geocode resolves a free-text query into an address and coordinate
func (c *Client) Geocode(ctx context.Context, query string) (*Place, error) {
	params := url.Values{}
	params.Add("address", query)
	params.Add("key", c.apiKey)

	var result googleGeocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL, params, &result); err != nil {
		return nil, err
	}

	if result.Status != "OK" || len(result.Results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, query)
	}

	first := result.Results[0]
	return &Place{
		Address: first.FormattedAddress,
		Location: models.Coordinate{
			Latitude:  first.Geometry.Location.Lat,
			Longitude: first.Geometry.Location.Lng,
		},
	}, nil
}

// ReverseGeocode converts a coordinate to an address. It never fails: on any
// error the formatted coordinate string is returned so the UI stays usable.
func (c *Client) ReverseGeocode(ctx context.Context, coord models.Coordinate) string {
	params := url.Values{}
	params.Add("latlng", fmt.Sprintf("%f,%f", coord.Latitude, coord.Longitude))
	params.Add("key", c.apiKey)

	var result googleGeocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL, params, &result); err != nil {
		log.Printf("⚠️  Reverse geocode failed: %v - using raw coordinates", err)
		return coord.String()
	}

	if result.Status != "OK" || len(result.Results) == 0 {
		return coord.String()
	}

	return result.Results[0].FormattedAddress
}

// DirectionsRoute fetches a driving route between two points and decodes its
// overview polyline. When the provider omits the polyline, the two-point
// [origin, destination] path is returned instead.
func (c *Client) DirectionsRoute(ctx context.Context, origin, destination models.Coordinate) ([]models.Coordinate, error) {
	params := url.Values{}
	params.Add("origin", fmt.Sprintf("%f,%f", origin.Latitude, origin.Longitude))
	params.Add("destination", fmt.Sprintf("%f,%f", destination.Latitude, destination.Longitude))
	params.Add("mode", "driving")
	params.Add("key", c.apiKey)

	var result googleDirectionsResponse
	if err := c.getJSON(ctx, c.directionsURL, params, &result); err != nil {
		return nil, err
	}

	if result.Status != "OK" || len(result.Routes) == 0 {
		return nil, fmt.Errorf("directions API returned status: %s", result.Status)
	}

	encoded := result.Routes[0].OverviewPolyline.Points
	if encoded == "" {
		return []models.Coordinate{origin, destination}, nil
	}

	return DecodePolyline(encoded), nil
}

// PlaceSuggestions fetches autocomplete suggestions for a partial query.
// A blank query returns nil without any network call. On a hard failure a
// single geocode-based suggestion marked IsFallback is attempted; if that also
// fails the result is empty. This method never returns an error.
func (c *Client) PlaceSuggestions(ctx context.Context, query string, opts SuggestionOptions) []Suggestion {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	params := url.Values{}
	params.Add("input", query)
	params.Add("key", c.apiKey)
	if opts.Language != "" {
		params.Add("language", opts.Language)
	}
	if opts.BiasLocation != nil {
		params.Add("location", fmt.Sprintf("%f,%f", opts.BiasLocation.Latitude, opts.BiasLocation.Longitude))
		radius := opts.RadiusMeters
		if radius <= 0 {
			radius = 50000
		}
		params.Add("radius", fmt.Sprintf("%d", radius))
	}

	var result googleAutocompleteResponse
	err := c.getJSON(ctx, c.autocompleteURL, params, &result)
	if err == nil && result.Status == "ZERO_RESULTS" {
		return []Suggestion{}
	}
	if err == nil && result.Status == "OK" {
		suggestions := make([]Suggestion, 0, len(result.Predictions))
		for _, p := range result.Predictions {
			suggestions = append(suggestions, Suggestion{
				PlaceID:     p.PlaceID,
				Description: p.Description,
			})
		}
		return suggestions
	}

	log.Printf("⚠️  Autocomplete failed for %q - trying geocode fallback", query)

	place, geoErr := c.Geocode(ctx, query)
	if geoErr != nil {
		return []Suggestion{}
	}

	return []Suggestion{{
		Description: place.Address,
		IsFallback:  true,
	}}
}

// PlaceDetails resolves a place id to its address and coordinate
func (c *Client) PlaceDetails(ctx context.Context, placeID string) (*Place, error) {
	params := url.Values{}
	params.Add("place_id", placeID)
	params.Add("fields", "formatted_address,geometry")
	params.Add("key", c.apiKey)

	var result googlePlaceDetailsResponse
	if err := c.getJSON(ctx, c.placeDetailsURL, params, &result); err != nil {
		return nil, err
	}

	if result.Status != "OK" {
		return nil, fmt.Errorf("%w: place id %q", ErrNotFound, placeID)
	}

	return &Place{
		Address: result.Result.FormattedAddress,
		Location: models.Coordinate{
			Latitude:  result.Result.Geometry.Location.Lat,
			Longitude: result.Result.Geometry.Location.Lng,
		},
	}, nil
}

// getJSON performs a GET against a Maps endpoint and decodes the JSON payload
func (c *Client) getJSON(ctx context.Context, baseURL string, params url.Values, out interface{}) error {
	fullURL := fmt.Sprintf("%s?%s", baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status code %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
