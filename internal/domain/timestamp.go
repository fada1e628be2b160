package domain

import (
	"strings"
	"time"
	// Embed zone data so America/New_York resolves inside scratch containers.
	_ "time/tzdata"
)

var newYork = mustLoadNewYork()

func mustLoadNewYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic("load America/New_York: " + err.Error())
	}
	return loc
}

// NormalizeTimestamp converts a date-less 12-hour feed timestamp like
// "11:45 PM" into an absolute UTC time at minute precision.
//
// The string is read as New York wall-clock time on the New York date of the
// reference instant. A result strictly after the reference instant means the
// reading is from the previous evening (ingestion shortly after local
// midnight), so one calendar day is subtracted before converting to UTC.
// Returns false for anything that does not parse; callers drop such records.
func NormalizeTimestamp(value string, ref time.Time) (time.Time, bool) {
	value = strings.ToUpper(strings.TrimSpace(value))

	parsed, err := time.ParseInLocation("3:04 PM", value, newYork)
	if err != nil {
		return time.Time{}, false
	}

	refLocal := ref.In(newYork)
	zoned := time.Date(refLocal.Year(), refLocal.Month(), refLocal.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, newYork)

	if zoned.After(ref) {
		zoned = zoned.AddDate(0, 0, -1)
	}

	return zoned.UTC(), true
}
