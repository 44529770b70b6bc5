package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"tripmate-core/internal/models"
	"tripmate-core/internal/services/trip"
	"tripmate-core/pkg/utils"
)

type CreateTripRequest struct {
	TripName           string              `json:"tripName"`
	Destination        *models.Coordinate  `json:"destination"`
	DestinationAddress string              `json:"destinationAddress"`
	RoutePoints        []models.Coordinate `json:"routePoints"`
}

type JoinTripRequest struct {
	TripCode string `json:"tripCode"`
}

type SOSRequest struct {
	Active bool `json:"active"`
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

// GetTrip returns the current merged trip snapshot
func GetTrip(trips *trip.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.Success(w, trips.Snapshot())
	}
}

// CreateTrip creates a new trip and returns its code
func CreateTrip(trips *trip.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTripRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		code, err := trips.CreateTrip(r.Context(), req.TripName, req.Destination, req.DestinationAddress, req.RoutePoints)
		if err != nil {
			utils.Error(w, tripStatus(err), err.Error())
			return
		}

		utils.Success(w, map[string]string{"tripCode": code})
	}
}

// JoinTrip joins an existing trip by code
func JoinTrip(trips *trip.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinTripRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := trips.JoinTrip(r.Context(), req.TripCode); err != nil {
			utils.Error(w, tripStatus(err), err.Error())
			return
		}

		utils.Success(w, trips.Snapshot())
	}
}

// LeaveTrip tears down the active trip
func LeaveTrip(trips *trip.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := trips.LeaveTrip(); err != nil {
			utils.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		utils.Success(w, trips.Snapshot())
	}
}

// TriggerSOS toggles the shared SOS flag
func TriggerSOS(trips *trip.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SOSRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := trips.TriggerSOS(r.Context(), req.Active); err != nil {
			// Optimistic flag is already set locally; report the write failure
			utils.Error(w, http.StatusBadGateway, err.Error())
			return
		}

		utils.Success(w, trips.Snapshot())
	}
}

// SetLocationMode switches the tracking strategy
func SetLocationMode(trips *trip.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ModeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		mode := models.ParseLocationMode(req.Mode)
		if err := trips.SetLocationMode(r.Context(), mode); err != nil {
			utils.Error(w, tripStatus(err), err.Error())
			return
		}

		utils.Success(w, trips.Snapshot())
	}
}

// StartTracking begins pushing location samples for the active trip
func StartTracking(trips *trip.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := trips.StartLocationTracking(r.Context()); err != nil {
			utils.Error(w, tripStatus(err), err.Error())
			return
		}
		utils.Success(w, trips.Snapshot())
	}
}

// StopTracking releases the tracking resource
func StopTracking(trips *trip.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := trips.StopLocationTracking(); err != nil {
			utils.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		utils.Success(w, trips.Snapshot())
	}
}

// ClearTripError dismisses the trip error slice
func ClearTripError(trips *trip.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trips.ClearTripError()
		utils.Success(w, trips.Snapshot())
	}
}

func tripStatus(err error) int {
	switch {
	case errors.Is(err, trip.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, trip.ErrTripNotFound):
		return http.StatusNotFound
	case errors.Is(err, trip.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, trip.ErrCodeGenerationExhausted):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}
