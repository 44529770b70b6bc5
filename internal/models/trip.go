package models

// Trip represents one coordinated journey shared by a group of members
type Trip struct {
	Code               string       `json:"tripCode"`
	Name               string       `json:"tripName"`
	Destination        *Coordinate  `json:"destination"`
	DestinationAddress string       `json:"destinationAddress"`
	RoutePoints        []Coordinate `json:"routePoints"`
	IsSOSActive        bool         `json:"isSOSActive"`
	OwnerID            string       `json:"ownerId"`
}

// TripFromDoc maps a raw backend trip document into a Trip, dropping malformed fields
func TripFromDoc(code string, data map[string]interface{}) Trip {
	trip := Trip{
		Code:        code,
		Name:        "Unknown Trip",
		Destination: ToCoordinate(data["destination"]),
		RoutePoints: ToCoordinates(data["routePoints"]),
	}

	if name, ok := data["tripName"].(string); ok {
		trip.Name = name
	}
	if address, ok := data["destinationAddress"].(string); ok {
		trip.DestinationAddress = address
	}
	if sos, ok := data["isSOSActive"].(bool); ok {
		trip.IsSOSActive = sos
	}
	if owner, ok := data["ownerId"].(string); ok {
		trip.OwnerID = owner
	}

	return trip
}
