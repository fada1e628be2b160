package domain

import (
	"strconv"
	"strings"
	"time"
)

// Partitioned holds the candidate records derived from one raw reading: one
// candidate per dimension plus one fact candidate whose dimension fields are
// still strings.
type Partitioned struct {
	Facility          Facility
	Route             Route
	CardinalDirection string
	TravelDirection   string
	InformationalText string
	Fact              FactCandidate
}

// PartitionReading splits a raw reading into its candidate dimension and fact
// records. It is a pure function: no I/O, and the same input with the same
// reference instant always yields identical output. Dimension strings keep
// their original casing; normalization happens only at matching time.
func PartitionReading(raw RawReading, ref time.Time) Partitioned {
	var ts *time.Time
	if t, ok := NormalizeTimestamp(raw.TimeStamp, ref); ok {
		ts = &t
	}

	return Partitioned{
		Facility: Facility{
			FacilityID:          raw.FacilityID,
			XCMFacilityID:       raw.XCMFacilityID,
			Modifier:            raw.FacilityModifier,
			CrossingDisplayName: raw.CrossingDisplayName,
		},
		Route: Route{
			RouteID:          raw.RouteID,
			RouteName:        raw.RouteName,
			FacilityID:       raw.FacilityID,
			FacilityModifier: raw.FacilityModifier,
		},
		CardinalDirection: raw.CardinalDirection,
		TravelDirection:   raw.TravelDirection,
		InformationalText: raw.InformationalText,
		Fact: FactCandidate{
			FacilityID:          raw.FacilityID,
			FacilityModifier:    raw.FacilityModifier,
			RouteID:             raw.RouteID,
			CardinalDirection:   raw.CardinalDirection,
			TravelDirection:     raw.TravelDirection,
			InformationalText:   raw.InformationalText,
			IsCrossingClosed:    raw.IsCrossingClosed,
			RouteSpeed:          raw.RouteSpeed,
			RouteTravelTime:     raw.RouteTravelTime,
			RouteSpeedHist:      raw.RouteSpeedHist,
			RouteTravelTimeHist: raw.RouteTravelTimeHist,
			SpeedStatusMessage:  raw.SpeedStatusMessage,
			TimeStatusMessage:   raw.TimeStatusMessage,
			IsDataAvailable:     raw.IsDataAvailable,
			TimeStamp:           ts,
		},
	}
}

// CrossingTimeFromReading maps a raw reading straight onto the denormalized
// crossing_times row shape. Returns false when the feed timestamp does not
// parse, since such a row cannot satisfy the table's conflict key.
func CrossingTimeFromReading(raw RawReading, ref time.Time) (CrossingTime, bool) {
	ts, ok := NormalizeTimestamp(raw.TimeStamp, ref)
	if !ok {
		return CrossingTime{}, false
	}

	return CrossingTime{
		FacilityID:          raw.FacilityID,
		XCMFacilityID:       raw.XCMFacilityID,
		FacilityModifier:    raw.FacilityModifier,
		CardinalDirection:   raw.CardinalDirection,
		TravelDirection:     raw.TravelDirection,
		CrossingDisplayName: raw.CrossingDisplayName,
		IsCrossingClosed:    raw.IsCrossingClosed,
		RouteID:             raw.RouteID,
		RouteSpeed:          raw.RouteSpeed,
		RouteTravelTime:     raw.RouteTravelTime,
		RouteSpeedHist:      raw.RouteSpeedHist,
		RouteTravelTimeHist: raw.RouteTravelTimeHist,
		RouteName:           raw.RouteName,
		TimeStamp:           ts,
		InformationalText:   raw.InformationalText,
		SpeedStatusMessage:  raw.SpeedStatusMessage,
		TimeStatusMessage:   raw.TimeStatusMessage,
		IsDataAvailable:     raw.IsDataAvailable,
	}, true
}

// NormalizeKey lower-cases and trims a string dimension value for natural-key
// matching. Stored values keep their original casing; this form is used only
// for dedup, conflict targets, and resolution.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FacilityKey composes the facilities natural key. Modifier absence is itself
// part of the key, encoded distinctly from an empty modifier.
func FacilityKey(facilityID int, modifier *string) string {
	if modifier == nil {
		return strconv.Itoa(facilityID) + "|<nil>"
	}
	return strconv.Itoa(facilityID) + "|" + NormalizeKey(*modifier)
}

// RouteKey composes the in-batch route dedup key. The store conflict key is
// route_id alone, but batch dedup also considers name and facility so two
// readings that disagree about a route surface as two candidates rather than
// silently collapsing.
func RouteKey(r Route) string {
	return strconv.Itoa(r.RouteID) + "|" + NormalizeKey(r.RouteName) + "|" + FacilityKey(r.FacilityID, r.FacilityModifier)
}
