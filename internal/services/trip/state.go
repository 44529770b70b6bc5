package trip

import "tripmate-core/internal/models"

// State is the merged local view of the active trip. The trip-document stream
// and the member-collection stream update disjoint slices of it, so callbacks
// can arrive in any order without corrupting unrelated fields.
type State struct {
	CurrentTripCode     string              `json:"currentTripCode"` // "" = no active trip
	TripName            string              `json:"tripName"`
	Destination         *models.Coordinate  `json:"destination"`
	DestinationAddress  string              `json:"destinationAddress"`
	RoutePoints         []models.Coordinate `json:"routePoints"`
	Members             []models.Member     `json:"members"`
	IsSOSActive         bool                `json:"isSOSActive"`
	LocationMode        models.LocationMode `json:"locationMode"`
	CurrentUserLocation *models.Coordinate  `json:"currentUserLocation"`
	IsTripLoading       bool                `json:"isTripLoading"`
	TripError           string              `json:"tripError"` // "" = no error
	IsTrackingActive    bool                `json:"isTrackingActive"`
}

// baseState is the empty baseline LeaveTrip resets to
func baseState() State {
	return State{
		RoutePoints:  []models.Coordinate{},
		Members:      []models.Member{},
		LocationMode: models.ModeBalanced,
	}
}

// clone deep-copies the snapshot so observers never share backing storage
func (s State) clone() State {
	out := s

	out.RoutePoints = append([]models.Coordinate(nil), s.RoutePoints...)
	out.Members = append([]models.Member(nil), s.Members...)
	for i, m := range out.Members {
		if m.Location != nil {
			loc := *m.Location
			out.Members[i].Location = &loc
		}
	}

	if s.Destination != nil {
		dest := *s.Destination
		out.Destination = &dest
	}
	if s.CurrentUserLocation != nil {
		loc := *s.CurrentUserLocation
		out.CurrentUserLocation = &loc
	}

	return out
}
