// Package domain models Port Authority of NY & NJ crossing-times telemetry.
//
// # Data Source
//
// Readings come from the public crossing-times feed at
// https://panynj.gov/bin/portauthority/crossingtimesapi.json: a single JSON
// array with one object per facility, route, and travel direction, refreshed
// roughly once a minute.
//
// # Feed Conventions
//
// Field names:
//
//	The feed spells the informational text key "infomationalText" (sic).
//	That misspelling is load-bearing: the struct tag must match it or the
//	field silently decodes as empty. Four trailing hex color fields exist
//	for the upstream website's rendering and are discarded here.
//
// Timestamps:
//
//	"h:mm A" 12-hour wall-clock time with no date, in the America/New_York
//	civil calendar, e.g. "11:45 PM". The date is recovered from the
//	ingestion instant: assume the reference instant's New York date, and if
//	that puts the reading in the future, it is actually from the previous
//	evening and one calendar day is subtracted. See [NormalizeTimestamp].
//
// Facility identity:
//
//	facilityId alone does not identify a physical span. Crossings with
//	stacked roadways (e.g. upper and lower levels of the George Washington
//	Bridge) share a facilityId and differ only in facilityModifier, which
//	may also be absent entirely. The natural key is therefore the pair
//	(facilityId, facilityModifier), with absence as a distinct key value.
//
// Dimension vocabularies:
//
//	cardinalDirection and travelDirection are small and nearly fixed
//	("eastbound"/"westbound", "inbound"/"outbound"), growing only if the
//	upstream adds a label. infomationalText is unbounded free text and
//	accretes one row per distinct message ever seen. Matching against
//	stored rows is case- and whitespace-insensitive; stored values keep the
//	casing first received.
//
// # Idempotence
//
// All writes target natural keys with conflict-ignore semantics, so
// replaying a snapshot, or ingesting overlapping snapshots covering the same
// minute, creates no duplicate rows. The fact conflict key excludes travel
// direction and informational text on purpose: variants for the same
// facility, route, direction, and minute are indistinguishable, and the
// first write for that key sticks.
package domain
