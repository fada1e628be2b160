package pipeline

import (
	"fmt"

	"github.com/couchcryptid/crossing-times-etl/internal/domain"
)

// assembleFacts joins fact candidates against the resolved dimension ids,
// replacing the raw direction and text strings with surrogate keys. Facility
// and route are carried by natural key, not swapped for surrogates.
//
// Any candidate that cannot be fully resolved aborts the whole batch: an
// unresolvable string after a successful upsert and fetch-back means the
// resolver and the store disagree about normalization.
func assembleFacts(candidates []domain.FactCandidate, dims *resolved) ([]domain.StatusReading, error) {
	facts := make([]domain.StatusReading, 0, len(candidates))

	for _, c := range candidates {
		cardinalID, ok := dims.cardinal[domain.NormalizeKey(c.CardinalDirection)]
		if !ok {
			return nil, fmt.Errorf("%w: cardinal direction %q (facility %d route %d)",
				ErrDimensionResolution, c.CardinalDirection, c.FacilityID, c.RouteID)
		}
		travelID, ok := dims.travel[domain.NormalizeKey(c.TravelDirection)]
		if !ok {
			return nil, fmt.Errorf("%w: travel direction %q (facility %d route %d)",
				ErrDimensionResolution, c.TravelDirection, c.FacilityID, c.RouteID)
		}
		textID, ok := dims.texts[domain.NormalizeKey(c.InformationalText)]
		if !ok {
			return nil, fmt.Errorf("%w: informational text %q (facility %d route %d)",
				ErrDimensionResolution, c.InformationalText, c.FacilityID, c.RouteID)
		}

		facts = append(facts, domain.StatusReading{
			FacilityID:          c.FacilityID,
			FacilityModifier:    c.FacilityModifier,
			RouteID:             c.RouteID,
			CardinalDirectionID: cardinalID,
			TravelDirectionID:   travelID,
			InformationalTextID: textID,
			IsCrossingClosed:    c.IsCrossingClosed,
			RouteSpeed:          c.RouteSpeed,
			RouteTravelTime:     c.RouteTravelTime,
			RouteSpeedHist:      c.RouteSpeedHist,
			RouteTravelTimeHist: c.RouteTravelTimeHist,
			SpeedStatusMessage:  c.SpeedStatusMessage,
			TimeStatusMessage:   c.TimeStatusMessage,
			IsDataAvailable:     c.IsDataAvailable,
			TimeStamp:           *c.TimeStamp,
		})
	}

	return facts, nil
}
