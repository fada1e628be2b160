package domain

import "time"

// RawReading mirrors one element of the upstream crossing-times JSON array.
// Field names follow the feed exactly, including the misspelled
// "infomationalText" key. The four trailing hex color fields are not mapped
// and are discarded on decode.
type RawReading struct {
	FacilityID          int     `json:"facilityId"`
	XCMFacilityID       int     `json:"xcmFacilityId"`
	FacilityModifier    *string `json:"facilityModifier"`
	CardinalDirection   string  `json:"cardinalDirection"`
	TravelDirection     string  `json:"travelDirection"`
	CrossingDisplayName string  `json:"crossingDisplayName"`
	IsCrossingClosed    bool    `json:"isCrossingClosed"`
	RouteID             int     `json:"routeId"`
	RouteSpeed          float64 `json:"routeSpeed"`
	RouteTravelTime     float64 `json:"routeTravelTime"`
	RouteSpeedHist      string  `json:"routeSpeedHist"`
	RouteTravelTimeHist string  `json:"routeTravelTimeHist"`
	RouteName           string  `json:"routeName"`
	TimeStamp           string  `json:"timeStamp"` // "h:mm A", New York wall clock, no date
	InformationalText   string  `json:"infomationalText"`
	SpeedStatusMessage  string  `json:"speedStatusMessage"`
	TimeStatusMessage   string  `json:"timeStatusMessage"`
	IsDataAvailable     bool    `json:"isDataAvailable"`
}

// Facility is a candidate or stored row of the facilities dimension.
// The natural key is (FacilityID, Modifier); an absent modifier is part of
// the key, which is why Modifier stays a pointer rather than collapsing to "".
type Facility struct {
	ID                  int64 // surrogate key, zero until stored
	FacilityID          int
	XCMFacilityID       int
	Modifier            *string
	CrossingDisplayName string
}

// Route is a candidate or stored row of the routes dimension.
// RouteID alone is the store conflict key.
type Route struct {
	ID               int64
	RouteID          int
	RouteName        string
	FacilityID       int
	FacilityModifier *string
}

// Label is a stored row of one of the string-keyed dimensions
// (cardinal_directions, travel_directions, informational_texts). Value keeps
// the original casing as received from the feed.
type Label struct {
	ID    int64
	Value string
}

// FactCandidate is a partitioned reading whose dimension fields are still the
// raw feed strings. TimeStamp is nil when the feed timestamp could not be
// parsed; such candidates can never satisfy the fact conflict key and are
// dropped before assembly.
type FactCandidate struct {
	FacilityID          int
	FacilityModifier    *string
	RouteID             int
	CardinalDirection   string
	TravelDirection     string
	InformationalText   string
	IsCrossingClosed    bool
	RouteSpeed          float64
	RouteTravelTime     float64
	RouteSpeedHist      string
	RouteTravelTimeHist string
	SpeedStatusMessage  string
	TimeStatusMessage   string
	IsDataAvailable     bool
	TimeStamp           *time.Time
}

// StatusReading is a fully resolved fact row destined for status_readings.
// The conflict key is (FacilityID, RouteID, CardinalDirectionID, TimeStamp);
// travel direction and informational text are deliberately outside the key,
// so informational variants of the same minute collapse to one row.
type StatusReading struct {
	FacilityID          int
	FacilityModifier    *string
	RouteID             int
	CardinalDirectionID int64
	TravelDirectionID   int64
	InformationalTextID int64
	IsCrossingClosed    bool
	RouteSpeed          float64
	RouteTravelTime     float64
	RouteSpeedHist      string
	RouteTravelTimeHist string
	SpeedStatusMessage  string
	TimeStatusMessage   string
	IsDataAvailable     bool
	TimeStamp           time.Time
}

// CrossingTime is a row of the denormalized crossing_times variant: the full
// reading flattened into one table, dimension values kept as strings. The
// conflict key is (FacilityID, CardinalDirection, TimeStamp).
type CrossingTime struct {
	FacilityID          int
	XCMFacilityID       int
	FacilityModifier    *string
	CardinalDirection   string
	TravelDirection     string
	CrossingDisplayName string
	IsCrossingClosed    bool
	RouteID             int
	RouteSpeed          float64
	RouteTravelTime     float64
	RouteSpeedHist      string
	RouteTravelTimeHist string
	RouteName           string
	TimeStamp           time.Time
	InformationalText   string
	SpeedStatusMessage  string
	TimeStatusMessage   string
	IsDataAvailable     bool
}
