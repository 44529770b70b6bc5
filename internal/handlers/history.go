package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tripmate-core/internal/database"
	"tripmate-core/pkg/utils"
)

// TripSamples returns the locally journaled location samples for a trip
func TripSamples(journal *database.Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if journal == nil {
			utils.Error(w, http.StatusServiceUnavailable, "Trip journal not configured")
			return
		}

		code := chi.URLParam(r, "code")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		samples, err := journal.RecentSamples(code, limit)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		utils.Success(w, samples)
	}
}

// TripEvents returns the locally journaled lifecycle events for a trip
func TripEvents(journal *database.Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if journal == nil {
			utils.Error(w, http.StatusServiceUnavailable, "Trip journal not configured")
			return
		}

		code := chi.URLParam(r, "code")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		events, err := journal.Events(code, limit)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		utils.Success(w, events)
	}
}
