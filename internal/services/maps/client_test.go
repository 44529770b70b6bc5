package maps

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"tripmate-core/internal/models"
)

func testClient(server *httptest.Server) *Client {
	c := newClientWithKey("test-key")
	c.httpClient = server.Client()
	c.geocodeURL = server.URL + "/geocode"
	c.directionsURL = server.URL + "/directions"
	c.autocompleteURL = server.URL + "/autocomplete"
	c.placeDetailsURL = server.URL + "/details"
	return c
}

func TestGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("address"); got != "Patong Beach" {
			t.Errorf("expected query forwarded, got %q", got)
		}
		fmt.Fprint(w, `{
			"status": "OK",
			"results": [{
				"formatted_address": "Patong Beach, Phuket, Thailand",
				"geometry": {"location": {"lat": 7.8804, "lng": 98.3923}}
			}]
		}`)
	}))
	defer server.Close()

	place, err := testClient(server).Geocode(context.Background(), "Patong Beach")
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if place.Address != "Patong Beach, Phuket, Thailand" {
		t.Fatalf("unexpected address %q", place.Address)
	}
	if place.Location.Latitude != 7.8804 || place.Location.Longitude != 98.3923 {
		t.Fatalf("unexpected location %+v", place.Location)
	}
}

func TestGeocodeNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "results": []}`)
	}))
	defer server.Close()

	_, err := testClient(server).Geocode(context.Background(), "xyzzy")
	if err == nil {
		t.Fatal("expected error for empty result set")
	}
}

func TestReverseGeocodeFallsBackToCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	coord := models.Coordinate{Latitude: 7.8804, Longitude: 98.3923}
	address := testClient(server).ReverseGeocode(context.Background(), coord)
	if address != coord.String() {
		t.Fatalf("expected coordinate fallback %q, got %q", coord.String(), address)
	}
}

func TestReverseGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"status": "OK",
			"results": [{"formatted_address": "123 Beach Road"}]
		}`)
	}))
	defer server.Close()

	address := testClient(server).ReverseGeocode(context.Background(), models.Coordinate{Latitude: 1, Longitude: 2})
	if address != "123 Beach Road" {
		t.Fatalf("unexpected address %q", address)
	}
}

func TestDirectionsRouteDecodesPolyline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"status": "OK",
			"routes": [{"overview_polyline": {"points": %q}}]
		}`, referenceEncoded)
	}))
	defer server.Close()

	route, err := testClient(server).DirectionsRoute(context.Background(),
		models.Coordinate{Latitude: 38.5, Longitude: -120.2},
		models.Coordinate{Latitude: 43.252, Longitude: -126.453})
	if err != nil {
		t.Fatalf("directions: %v", err)
	}
	if len(route) != 3 {
		t.Fatalf("expected 3 decoded points, got %d", len(route))
	}
}

func TestDirectionsRouteTwoPointFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "OK", "routes": [{"overview_polyline": {"points": ""}}]}`)
	}))
	defer server.Close()

	origin := models.Coordinate{Latitude: 1, Longitude: 2}
	destination := models.Coordinate{Latitude: 3, Longitude: 4}
	route, err := testClient(server).DirectionsRoute(context.Background(), origin, destination)
	if err != nil {
		t.Fatalf("directions: %v", err)
	}
	if len(route) != 2 || route[0] != origin || route[1] != destination {
		t.Fatalf("expected [origin, destination] fallback, got %+v", route)
	}
}

func TestPlaceSuggestionsBlankQuerySkipsNetwork(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		fmt.Fprint(w, `{"status": "OK", "predictions": []}`)
	}))
	defer server.Close()

	suggestions := testClient(server).PlaceSuggestions(context.Background(), "   ", SuggestionOptions{})
	if suggestions != nil {
		t.Fatalf("expected nil for blank query, got %v", suggestions)
	}
	if atomic.LoadInt32(&requests) != 0 {
		t.Fatal("expected no network call for blank query")
	}
}

func TestPlaceSuggestions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/autocomplete" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("language"); got != "th" {
			t.Errorf("expected language forwarded, got %q", got)
		}
		fmt.Fprint(w, `{
			"status": "OK",
			"predictions": [
				{"place_id": "p1", "description": "Patong Beach"},
				{"place_id": "p2", "description": "Patong Hospital"}
			]
		}`)
	}))
	defer server.Close()

	suggestions := testClient(server).PlaceSuggestions(context.Background(), "Patong", SuggestionOptions{Language: "th"})
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].PlaceID != "p1" || suggestions[0].IsFallback {
		t.Fatalf("unexpected first suggestion %+v", suggestions[0])
	}
}

func TestPlaceSuggestionsZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "predictions": []}`)
	}))
	defer server.Close()

	suggestions := testClient(server).PlaceSuggestions(context.Background(), "nowhere", SuggestionOptions{})
	if suggestions == nil || len(suggestions) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", suggestions)
	}
}

func TestPlaceSuggestionsGeocodeFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/autocomplete":
			w.WriteHeader(http.StatusInternalServerError)
		case "/geocode":
			fmt.Fprint(w, `{
				"status": "OK",
				"results": [{
					"formatted_address": "Patong Beach, Phuket, Thailand",
					"geometry": {"location": {"lat": 7.8804, "lng": 98.3923}}
				}]
			}`)
		}
	}))
	defer server.Close()

	suggestions := testClient(server).PlaceSuggestions(context.Background(), "Patong", SuggestionOptions{})
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 fallback suggestion, got %d", len(suggestions))
	}
	if !suggestions[0].IsFallback {
		t.Fatal("expected fallback flag set")
	}
	if suggestions[0].Description != "Patong Beach, Phuket, Thailand" {
		t.Fatalf("unexpected description %q", suggestions[0].Description)
	}
}

func TestPlaceSuggestionsBothPathsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	suggestions := testClient(server).PlaceSuggestions(context.Background(), "Patong", SuggestionOptions{})
	if suggestions == nil || len(suggestions) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", suggestions)
	}
}

func TestPlaceDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("place_id"); got != "p1" {
			t.Errorf("expected place id forwarded, got %q", got)
		}
		fmt.Fprint(w, `{
			"status": "OK",
			"result": {
				"formatted_address": "Patong Beach, Phuket, Thailand",
				"geometry": {"location": {"lat": 7.8804, "lng": 98.3923}}
			}
		}`)
	}))
	defer server.Close()

	place, err := testClient(server).PlaceDetails(context.Background(), "p1")
	if err != nil {
		t.Fatalf("place details: %v", err)
	}
	if place.Location.Latitude != 7.8804 {
		t.Fatalf("unexpected place %+v", place)
	}
}
