// Command mockfeed serves a synthetic crossing-times snapshot for local
// development, so the etl binary can run without hitting the live endpoint.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/couchcryptid/crossing-times-etl/internal/domain"
)

var crossings = []struct {
	facilityID    int
	xcmFacilityID int
	modifier      string
	displayName   string
	routeID       int
	routeName     string
	cardinal      string
	travel        string
}{
	{3, 13, "", "Holland Tunnel", 31, "I-78 E", "westbound", "inbound"},
	{3, 13, "", "Holland Tunnel", 32, "NJ 139 E", "eastbound", "outbound"},
	{1, 11, "Upper Level", "George Washington Bridge", 12, "I-95 E", "eastbound", "inbound"},
	{1, 11, "Lower Level", "George Washington Bridge", 14, "I-95 W", "westbound", "outbound"},
	{5, 15, "", "Lincoln Tunnel", 51, "NJ 495 E", "eastbound", "inbound"},
}

func snapshot(now time.Time) []domain.RawReading {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	stamp := now.In(loc).Format("3:04 PM")

	readings := make([]domain.RawReading, 0, len(crossings))
	for i, c := range crossings {
		r := domain.RawReading{
			FacilityID:          c.facilityID,
			XCMFacilityID:       c.xcmFacilityID,
			CardinalDirection:   c.cardinal,
			TravelDirection:     c.travel,
			CrossingDisplayName: c.displayName,
			RouteID:             c.routeID,
			RouteSpeed:          float64(20 + i*3),
			RouteTravelTime:     float64(5 + i),
			RouteName:           c.routeName,
			TimeStamp:           stamp,
			IsDataAvailable:     true,
		}
		if c.modifier != "" {
			m := c.modifier
			r.FacilityModifier = &m
		}
		readings = append(readings, r)
	}
	return readings
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	path := flag.String("path", "/bin/portauthority/crossingtimesapi.json", "snapshot path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("GET %s", *path), func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot(time.Now())); err != nil {
			logger.Error("encode snapshot", "error", err)
		}
	})

	logger.Info("mockfeed listening", "addr", *addr, "path", *path)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
