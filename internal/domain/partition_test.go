package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawHollandJSON = `{
	"facilityId": 3,
	"xcmFacilityId": 13,
	"facilityModifier": null,
	"cardinalDirection": "westbound",
	"travelDirection": "inbound",
	"crossingDisplayName": "Holland Tunnel",
	"isCrossingClosed": false,
	"routeId": 31,
	"routeSpeed": 23,
	"routeTravelTime": 8,
	"routeSpeedHist": "21,22,23,23",
	"routeTravelTimeHist": "9,9,8,8",
	"routeName": "I-78 E",
	"timeStamp": "11:45 PM",
	"infomationalText": "Travel times are estimates",
	"speedStatusMessage": "normal",
	"timeStatusMessage": "normal",
	"isDataAvailable": true,
	"speedHexColor": "#00FF00",
	"travelTimeHexColor": "#00FF00",
	"speedHistHexColor": "#00FF00",
	"travelTimeHistHexColor": "#00FF00"
}`

func decodeReading(t *testing.T, data string) RawReading {
	t.Helper()
	var raw RawReading
	require.NoError(t, json.Unmarshal([]byte(data), &raw))
	return raw
}

func TestPartitionReading(t *testing.T) {
	ref := time.Date(2024, 1, 2, 0, 10, 0, 0, time.UTC)

	t.Run("field mapping", func(t *testing.T) {
		raw := decodeReading(t, rawHollandJSON)
		p := PartitionReading(raw, ref)

		assert.Equal(t, 3, p.Facility.FacilityID)
		assert.Equal(t, 13, p.Facility.XCMFacilityID)
		assert.Nil(t, p.Facility.Modifier)
		assert.Equal(t, "Holland Tunnel", p.Facility.CrossingDisplayName)

		assert.Equal(t, 31, p.Route.RouteID)
		assert.Equal(t, "I-78 E", p.Route.RouteName)
		assert.Equal(t, 3, p.Route.FacilityID)

		assert.Equal(t, "westbound", p.CardinalDirection)
		assert.Equal(t, "inbound", p.TravelDirection)
		assert.Equal(t, "Travel times are estimates", p.InformationalText)

		assert.Equal(t, 23.0, p.Fact.RouteSpeed)
		assert.Equal(t, 8.0, p.Fact.RouteTravelTime)
		assert.Equal(t, "21,22,23,23", p.Fact.RouteSpeedHist)
		assert.Equal(t, "normal", p.Fact.SpeedStatusMessage)
		assert.True(t, p.Fact.IsDataAvailable)
		assert.False(t, p.Fact.IsCrossingClosed)

		require.NotNil(t, p.Fact.TimeStamp)
		assert.Equal(t, time.Date(2024, 1, 1, 4, 45, 0, 0, time.UTC), *p.Fact.TimeStamp)
	})

	t.Run("misspelled informational text key decodes", func(t *testing.T) {
		raw := decodeReading(t, `{"infomationalText":"lane closure ahead"}`)
		assert.Equal(t, "lane closure ahead", raw.InformationalText)
	})

	t.Run("is pure", func(t *testing.T) {
		raw := decodeReading(t, rawHollandJSON)

		first := PartitionReading(raw, ref)
		second := PartitionReading(raw, ref)

		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("partition not deterministic (-first +second):\n%s", diff)
		}
	})

	t.Run("unparseable timestamp yields nil", func(t *testing.T) {
		raw := decodeReading(t, rawHollandJSON)
		raw.TimeStamp = "not a time"

		p := PartitionReading(raw, ref)
		assert.Nil(t, p.Fact.TimeStamp)
	})
}

func TestCrossingTimeFromReading(t *testing.T) {
	ref := time.Date(2024, 1, 2, 0, 10, 0, 0, time.UTC)
	raw := decodeReading(t, rawHollandJSON)

	t.Run("maps the flattened row", func(t *testing.T) {
		row, ok := CrossingTimeFromReading(raw, ref)

		require.True(t, ok)
		assert.Equal(t, 3, row.FacilityID)
		assert.Equal(t, "westbound", row.CardinalDirection)
		assert.Equal(t, "Holland Tunnel", row.CrossingDisplayName)
		assert.Equal(t, "Travel times are estimates", row.InformationalText)
		assert.Equal(t, time.Date(2024, 1, 1, 4, 45, 0, 0, time.UTC), row.TimeStamp)
	})

	t.Run("rejects unparseable timestamp", func(t *testing.T) {
		bad := raw
		bad.TimeStamp = ""

		_, ok := CrossingTimeFromReading(bad, ref)
		assert.False(t, ok)
	})
}

func TestNormalizeKey(t *testing.T) {
	variants := []string{"Westbound", "westbound ", " WESTBOUND"}
	for _, v := range variants {
		assert.Equal(t, "westbound", NormalizeKey(v))
	}
}

func TestFacilityKey(t *testing.T) {
	empty := ""
	upper := "Upper Level"
	lower := "lower level"

	t.Run("absent modifier is its own key", func(t *testing.T) {
		assert.NotEqual(t, FacilityKey(1, nil), FacilityKey(1, &empty))
	})

	t.Run("modifier casing folds", func(t *testing.T) {
		shouting := "UPPER LEVEL "
		assert.Equal(t, FacilityKey(1, &upper), FacilityKey(1, &shouting))
		assert.NotEqual(t, FacilityKey(1, &upper), FacilityKey(1, &lower))
	})

	t.Run("facility id distinguishes", func(t *testing.T) {
		assert.NotEqual(t, FacilityKey(1, nil), FacilityKey(2, nil))
	})
}

func TestRouteKey(t *testing.T) {
	a := Route{RouteID: 31, RouteName: "I-78 E", FacilityID: 3}
	b := Route{RouteID: 31, RouteName: "i-78 e ", FacilityID: 3}
	c := Route{RouteID: 31, RouteName: "I-95 N", FacilityID: 3}

	assert.Equal(t, RouteKey(a), RouteKey(b))
	assert.NotEqual(t, RouteKey(a), RouteKey(c))
}
