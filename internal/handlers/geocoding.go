package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"tripmate-core/internal/models"
	"tripmate-core/internal/services/maps"
	"tripmate-core/pkg/utils"
)

type GeocodeRequest struct {
	Query string `json:"query"`
}

type ReverseGeocodeRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type SuggestionsRequest struct {
	Query        string             `json:"query"`
	Language     string             `json:"language"`
	BiasLocation *models.Coordinate `json:"biasLocation"`
	RadiusMeters int                `json:"radiusMeters"`
}

type DirectionsRequest struct {
	Origin      models.Coordinate `json:"origin"`
	Destination models.Coordinate `json:"destination"`
}

type PlaceDetailsRequest struct {
	PlaceID string `json:"placeId"`
}

// Geocode resolves a free-text query to an address and coordinate
func Geocode(client *maps.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			utils.Error(w, http.StatusServiceUnavailable, "Maps provider not configured")
			return
		}

		var req GeocodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		place, err := client.Geocode(r.Context(), req.Query)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, maps.ErrNotFound) {
				status = http.StatusNotFound
			}
			utils.Error(w, status, err.Error())
			return
		}

		utils.Success(w, place)
	}
}

// ReverseGeocode converts a coordinate to an address (never fails)
func ReverseGeocode(client *maps.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			utils.Error(w, http.StatusServiceUnavailable, "Maps provider not configured")
			return
		}

		var req ReverseGeocodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		address := client.ReverseGeocode(r.Context(), models.Coordinate{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
		})
		utils.Success(w, map[string]string{"address": address})
	}
}

// PlaceSuggestions returns autocomplete suggestions for a partial query
func PlaceSuggestions(client *maps.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			utils.Error(w, http.StatusServiceUnavailable, "Maps provider not configured")
			return
		}

		var req SuggestionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		suggestions := client.PlaceSuggestions(r.Context(), req.Query, maps.SuggestionOptions{
			Language:     req.Language,
			BiasLocation: req.BiasLocation,
			RadiusMeters: req.RadiusMeters,
		})
		if suggestions == nil {
			suggestions = []maps.Suggestion{}
		}
		utils.Success(w, suggestions)
	}
}

// PlaceDetails resolves a place id to an address and coordinate
func PlaceDetails(client *maps.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			utils.Error(w, http.StatusServiceUnavailable, "Maps provider not configured")
			return
		}

		var req PlaceDetailsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		place, err := client.PlaceDetails(r.Context(), req.PlaceID)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, maps.ErrNotFound) {
				status = http.StatusNotFound
			}
			utils.Error(w, status, err.Error())
			return
		}

		utils.Success(w, place)
	}
}

// Directions returns a route between two coordinates
func Directions(client *maps.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			utils.Error(w, http.StatusServiceUnavailable, "Maps provider not configured")
			return
		}

		var req DirectionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		route, err := client.DirectionsRoute(r.Context(), req.Origin, req.Destination)
		if err != nil {
			utils.Error(w, http.StatusBadGateway, err.Error())
			return
		}

		utils.Success(w, map[string]interface{}{"routePoints": route})
	}
}
