// Package pipeline orchestrates one crossing-times ingestion run: fetch the
// feed snapshot, partition readings into candidate records, resolve
// dimensions to surrogate ids, assemble fact rows, and commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crossing-times-etl/internal/domain"
	"github.com/couchcryptid/crossing-times-etl/internal/observability"
)

// Stage names the steps of a run's forward-only state machine. A failure at
// any stage terminates the run; there is no retry-in-place.
type Stage string

const (
	StageIdle                Stage = "idle"
	StageFetching            Stage = "fetching"
	StagePartitioning        Stage = "partitioning"
	StageResolvingDimensions Stage = "resolving_dimensions"
	StageAssemblingFacts     Stage = "assembling_facts"
	StageCommitting          Stage = "committing"
	StageSucceeded           Stage = "succeeded"
	StageFailed              Stage = "failed"
)

// Variant selects the target schema shape for a deployment.
type Variant string

const (
	// VariantNormalized writes five dimension tables plus status_readings.
	VariantNormalized Variant = "normalized"
	// VariantDenormalized writes the original single crossing_times table.
	VariantDenormalized Variant = "denormalized"
)

// FeedFetcher fetches one raw snapshot from the upstream feed.
type FeedFetcher interface {
	FetchReadings(ctx context.Context) ([]domain.RawReading, error)
}

// Store opens a transaction scoped to one run.
type Store interface {
	BeginRun(ctx context.Context) (RunStore, error)
}

// RunStore is the write surface of a single run. All writes are
// conflict-ignore against natural keys; selects fetch back by normalized
// natural key so pre-existing rows resolve the same as fresh inserts.
type RunStore interface {
	UpsertFacilities(ctx context.Context, rows []domain.Facility) error
	UpsertRoutes(ctx context.Context, rows []domain.Route) error
	UpsertCardinalDirections(ctx context.Context, values []string) error
	SelectCardinalDirections(ctx context.Context, normalized []string) ([]domain.Label, error)
	UpsertTravelDirections(ctx context.Context, values []string) error
	SelectTravelDirections(ctx context.Context, normalized []string) ([]domain.Label, error)
	UpsertInformationalTexts(ctx context.Context, values []string) error
	SelectInformationalTexts(ctx context.Context, normalized []string) ([]domain.Label, error)
	InsertStatusReadings(ctx context.Context, rows []domain.StatusReading) (int64, error)
	UpsertCrossingTimes(ctx context.Context, rows []domain.CrossingTime) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// FactPublisher announces committed fact rows to a downstream sink.
type FactPublisher interface {
	PublishStatusReadings(ctx context.Context, rows []domain.StatusReading) error
}

// Pipeline executes stateless ingestion runs. It holds no state between runs
// other than the readiness flag; all durable dedup state lives in the store.
type Pipeline struct {
	feed      FeedFetcher
	store     Store
	publisher FactPublisher // nil disables publishing
	variant   Variant
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline. Pass a nil publisher to disable the downstream
// fact sink.
func New(feed FeedFetcher, store Store, publisher FactPublisher, variant Variant, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		feed:      feed,
		store:     store,
		publisher: publisher,
		variant:   variant,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one run has succeeded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no successful ingestion run yet")
	}
	return nil
}

// Run executes a single ingestion run and reports a binary outcome. The
// reference instant for timestamp normalization is taken from the clock at
// run start.
func (p *Pipeline) Run(ctx context.Context) error {
	start := p.clock.Now()
	ref := start.UTC()

	p.metrics.RunInProgress.Set(1)
	defer p.metrics.RunInProgress.Set(0)

	p.logger.Info("run started", "variant", string(p.variant), "reference", ref.Format(time.RFC3339))

	var err error
	switch p.variant {
	case VariantDenormalized:
		err = p.runDenormalized(ctx, ref)
	default:
		err = p.runNormalized(ctx, ref)
	}

	elapsed := p.clock.Since(start)
	p.metrics.RunDuration.Observe(elapsed.Seconds())

	if err != nil {
		stage := FailureStage(err)
		p.metrics.RunsTotal.WithLabelValues("failure").Inc()
		p.metrics.StageFailures.WithLabelValues(string(stage)).Inc()
		p.logger.Error("run failed", "stage", string(stage), "error", err, "duration", elapsed)
		return err
	}

	p.ready.Store(true)
	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.logger.Info("run succeeded", "duration", elapsed)
	return nil
}

func (p *Pipeline) runNormalized(ctx context.Context, ref time.Time) error {
	readings, err := p.fetch(ctx)
	if err != nil {
		return err
	}

	b := p.partitionBatch(readings, ref)

	tx, err := p.store.BeginRun(ctx)
	if err != nil {
		return failAt(StageResolvingDimensions, fmt.Errorf("%w: %w", ErrStoreWrite, err))
	}
	// Rollback after Commit is a no-op; WithoutCancel lets a failed run
	// still release the transaction when the request context is gone.
	defer tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck

	dims, err := p.resolveDimensions(ctx, tx, b)
	if err != nil {
		return failAt(StageResolvingDimensions, err)
	}

	facts, err := assembleFacts(b.facts, dims)
	if err != nil {
		return failAt(StageAssemblingFacts, err)
	}

	inserted, err := tx.InsertStatusReadings(ctx, facts)
	if err != nil {
		return failAt(StageCommitting, fmt.Errorf("%w: %w", ErrFactWrite, err))
	}
	if err := tx.Commit(ctx); err != nil {
		return failAt(StageCommitting, fmt.Errorf("%w: commit: %w", ErrFactWrite, err))
	}

	p.metrics.FactRowsInserted.Add(float64(inserted))
	p.logger.Info("facts committed",
		"candidates", len(facts),
		"inserted", inserted,
		"duplicates", int64(len(facts))-inserted,
	)

	p.publish(ctx, facts)
	return nil
}

func (p *Pipeline) runDenormalized(ctx context.Context, ref time.Time) error {
	readings, err := p.fetch(ctx)
	if err != nil {
		return err
	}

	rows := make([]domain.CrossingTime, 0, len(readings))
	for _, raw := range readings {
		row, ok := domain.CrossingTimeFromReading(raw, ref)
		if !ok {
			p.dropUnparseable(raw)
			continue
		}
		rows = append(rows, row)
	}

	tx, err := p.store.BeginRun(ctx)
	if err != nil {
		return failAt(StageCommitting, fmt.Errorf("%w: %w", ErrStoreWrite, err))
	}
	defer tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck

	inserted, err := tx.UpsertCrossingTimes(ctx, rows)
	if err != nil {
		return failAt(StageCommitting, fmt.Errorf("%w: %w", ErrFactWrite, err))
	}
	if err := tx.Commit(ctx); err != nil {
		return failAt(StageCommitting, fmt.Errorf("%w: commit: %w", ErrFactWrite, err))
	}

	p.metrics.FactRowsInserted.Add(float64(inserted))
	p.logger.Info("crossing times committed",
		"candidates", len(rows),
		"inserted", inserted,
		"duplicates", int64(len(rows))-inserted,
	)
	return nil
}

func (p *Pipeline) fetch(ctx context.Context) ([]domain.RawReading, error) {
	fetchStart := p.clock.Now()
	readings, err := p.feed.FetchReadings(ctx)
	p.metrics.FeedRequestDuration.Observe(p.clock.Since(fetchStart).Seconds())
	if err != nil {
		return nil, failAt(StageFetching, err)
	}
	p.metrics.ReadingsFetched.Add(float64(len(readings)))
	return readings, nil
}

// publish runs after commit; a sink failure cannot un-persist the batch, so
// it is surfaced as a logged error and a metric rather than a failed run.
func (p *Pipeline) publish(ctx context.Context, facts []domain.StatusReading) {
	if p.publisher == nil || len(facts) == 0 {
		return
	}
	if err := p.publisher.PublishStatusReadings(ctx, facts); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish facts failed", "error", err, "facts", len(facts))
		return
	}
	p.metrics.FactsPublished.Add(float64(len(facts)))
}

func (p *Pipeline) dropUnparseable(raw domain.RawReading) {
	p.metrics.TimestampParseFailures.Inc()
	p.logger.Warn("dropping reading with unparseable timestamp",
		"facility_id", raw.FacilityID,
		"route_id", raw.RouteID,
		"time_stamp", raw.TimeStamp,
	)
}
