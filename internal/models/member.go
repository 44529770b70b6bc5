package models

// LocationMode selects the GPS acquisition strategy for a member
type LocationMode string

const (
	ModeHigh     LocationMode = "high"
	ModeBalanced LocationMode = "balanced"
	ModeSmart    LocationMode = "smart"
)

// DefaultBatteryLevel is reported until a real battery reading is available
const DefaultBatteryLevel = 85

// ParseLocationMode coerces a backend value into a valid mode, defaulting to balanced
func ParseLocationMode(v interface{}) LocationMode {
	s, ok := v.(string)
	if !ok {
		return ModeBalanced
	}

	switch LocationMode(s) {
	case ModeHigh, ModeBalanced, ModeSmart:
		return LocationMode(s)
	}
	return ModeBalanced
}

// Member is one participant's live status record within a trip
type Member struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	BatteryLevel  int          `json:"batteryLevel"`
	LocationMode  LocationMode `json:"locationMode"`
	Location      *Coordinate  `json:"location"`
	LastUpdatedAt int64        `json:"lastUpdatedAt"` // client epoch millis, 0 = never
}

// MemberFromDoc maps a raw backend member document into a Member, defaulting every
// field that is missing or has the wrong type
func MemberFromDoc(id string, data map[string]interface{}) Member {
	member := Member{
		ID:           id,
		Name:         "Member",
		BatteryLevel: DefaultBatteryLevel,
		LocationMode: ParseLocationMode(data["locationMode"]),
		Location:     ToCoordinate(data["location"]),
	}

	if name, ok := data["name"].(string); ok {
		member.Name = name
	}
	if email, ok := data["email"].(string); ok {
		member.Email = email
	}
	if battery, ok := toFloat(data["batteryLevel"]); ok {
		member.BatteryLevel = int(battery)
	}
	if updated, ok := toFloat(data["lastUpdatedAt"]); ok {
		member.LastUpdatedAt = int64(updated)
	}

	return member
}
