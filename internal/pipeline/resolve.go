package pipeline

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/couchcryptid/crossing-times-etl/internal/domain"
)

// batch holds the candidate records accumulated across one whole snapshot,
// deduplicated by normalized natural key before any store I/O. Map values
// keep the first-seen original casing.
type batch struct {
	facilities map[string]domain.Facility
	routes     map[string]domain.Route
	cardinal   map[string]string // normalized -> original
	travel     map[string]string
	texts      map[string]string
	facts      []domain.FactCandidate
}

// partitionBatch splits every reading into candidate records and merges them
// into per-dimension dedup maps. Readings whose timestamp does not parse are
// excluded from the fact set here; their dimension candidates are kept, since
// dimension rows are monotone and harmless.
func (p *Pipeline) partitionBatch(readings []domain.RawReading, ref time.Time) *batch {
	b := &batch{
		facilities: make(map[string]domain.Facility),
		routes:     make(map[string]domain.Route),
		cardinal:   make(map[string]string),
		travel:     make(map[string]string),
		texts:      make(map[string]string),
		facts:      make([]domain.FactCandidate, 0, len(readings)),
	}

	for _, raw := range readings {
		part := domain.PartitionReading(raw, ref)

		fk := domain.FacilityKey(part.Facility.FacilityID, part.Facility.Modifier)
		if _, seen := b.facilities[fk]; !seen {
			b.facilities[fk] = part.Facility
		}

		rk := domain.RouteKey(part.Route)
		if _, seen := b.routes[rk]; !seen {
			b.routes[rk] = part.Route
		}

		mergeLabel(b.cardinal, part.CardinalDirection)
		mergeLabel(b.travel, part.TravelDirection)
		mergeLabel(b.texts, part.InformationalText)

		if part.Fact.TimeStamp == nil {
			p.dropUnparseable(raw)
			continue
		}
		b.facts = append(b.facts, part.Fact)
	}

	p.logger.Debug("partitioned snapshot",
		"readings", len(readings),
		"facilities", len(b.facilities),
		"routes", len(b.routes),
		"cardinal_directions", len(b.cardinal),
		"travel_directions", len(b.travel),
		"informational_texts", len(b.texts),
		"facts", len(b.facts),
	)
	return b
}

func mergeLabel(m map[string]string, value string) {
	key := domain.NormalizeKey(value)
	if _, seen := m[key]; !seen {
		m[key] = value
	}
}

// resolved maps normalized natural keys to surrogate ids for the three
// dimensions the fact table references by id.
type resolved struct {
	cardinal map[string]int64
	travel   map[string]int64
	texts    map[string]int64
}

// resolveDimensions upserts every deduplicated candidate set and resolves the
// string dimensions to ids via an unconditional fetch-back. The fetch-back is
// required because conflict-ignored rows do not report their existing ids:
// re-reading by natural key is the only way to get authoritative ids for
// fresh and pre-existing rows alike.
func (p *Pipeline) resolveDimensions(ctx context.Context, tx RunStore, b *batch) (*resolved, error) {
	facilities := sortedValues(b.facilities)
	if err := tx.UpsertFacilities(ctx, facilities); err != nil {
		return nil, fmt.Errorf("%w: facilities: %w", ErrStoreWrite, err)
	}
	p.metrics.DimensionCandidates.WithLabelValues("facilities").Add(float64(len(facilities)))

	routes := sortedValues(b.routes)
	if err := tx.UpsertRoutes(ctx, routes); err != nil {
		return nil, fmt.Errorf("%w: routes: %w", ErrStoreWrite, err)
	}
	p.metrics.DimensionCandidates.WithLabelValues("routes").Add(float64(len(routes)))

	cardinal, err := p.resolveLabels(ctx, "cardinal_directions", b.cardinal,
		tx.UpsertCardinalDirections, tx.SelectCardinalDirections)
	if err != nil {
		return nil, err
	}
	travel, err := p.resolveLabels(ctx, "travel_directions", b.travel,
		tx.UpsertTravelDirections, tx.SelectTravelDirections)
	if err != nil {
		return nil, err
	}
	texts, err := p.resolveLabels(ctx, "informational_texts", b.texts,
		tx.UpsertInformationalTexts, tx.SelectInformationalTexts)
	if err != nil {
		return nil, err
	}

	return &resolved{cardinal: cardinal, travel: travel, texts: texts}, nil
}

// resolveLabels runs the upsert-then-fetch-back sequence for one string
// dimension and verifies every candidate resolved. A candidate without a
// match after a successful upsert means the store and this code disagree
// about normalization; that is a hard failure, not a record to drop.
func (p *Pipeline) resolveLabels(
	ctx context.Context,
	table string,
	candidates map[string]string,
	upsert func(context.Context, []string) error,
	fetch func(context.Context, []string) ([]domain.Label, error),
) (map[string]int64, error) {
	keys := slices.Sorted(maps.Keys(candidates))

	originals := make([]string, len(keys))
	for i, k := range keys {
		originals[i] = candidates[k]
	}

	if err := upsert(ctx, originals); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreWrite, table, err)
	}
	p.metrics.DimensionCandidates.WithLabelValues(table).Add(float64(len(originals)))

	rows, err := fetch(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreRead, table, err)
	}

	ids := make(map[string]int64, len(rows))
	for _, row := range rows {
		ids[domain.NormalizeKey(row.Value)] = row.ID
	}

	for _, k := range keys {
		if _, ok := ids[k]; !ok {
			return nil, fmt.Errorf("%w: %s has no row for %q", ErrDimensionResolution, table, candidates[k])
		}
	}
	return ids, nil
}

// sortedValues flattens a dedup map into a deterministic slice. Insertion
// order is irrelevant for correctness; a stable order keeps runs comparable.
func sortedValues[V any](m map[string]V) []V {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]V, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}
