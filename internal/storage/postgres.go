// Package storage persists crossing-times dimensions and facts in PostgreSQL.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/crossing-times-etl/internal/domain"
	"github.com/couchcryptid/crossing-times-etl/internal/pipeline"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MinConns int32
	MaxConns int32
}

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open creates a connection pool and verifies connectivity.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode,
	)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Ping verifies the pool can reach the server.
func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// CreateSchema creates the tables for both schema variants. The natural-key
// constraints here are load-bearing: every write in the pipeline relies on
// them as conflict targets, and they are the only guard against two
// overlapping runs racing on the same key.
func (d *DB) CreateSchema(ctx context.Context) error {
	schema := `
	-- Dimension: physical crossings. A facility_id is shared by stacked
	-- spans (upper/lower levels), so the modifier is part of the key and
	-- NULL modifiers must collide with each other.
	CREATE TABLE IF NOT EXISTS facilities (
		id                     BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		facility_id            INTEGER NOT NULL,
		xcm_facility_id        INTEGER,
		facility_modifier      TEXT,
		crossing_display_name  TEXT NOT NULL DEFAULT '',
		CONSTRAINT facilities_natural_key UNIQUE NULLS NOT DISTINCT (facility_id, facility_modifier)
	);

	CREATE TABLE IF NOT EXISTS routes (
		id                 BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		route_id           INTEGER NOT NULL UNIQUE,
		route_name         TEXT NOT NULL DEFAULT '',
		facility_id        INTEGER NOT NULL,
		facility_modifier  TEXT
	);

	-- String dimensions. Values keep original casing; uniqueness and
	-- conflict targets use the normalized form.
	CREATE TABLE IF NOT EXISTS cardinal_directions (
		id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		direction  TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_cardinal_directions_norm
		ON cardinal_directions (lower(btrim(direction)));

	CREATE TABLE IF NOT EXISTS travel_directions (
		id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		direction  TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_travel_directions_norm
		ON travel_directions (lower(btrim(direction)));

	CREATE TABLE IF NOT EXISTS informational_texts (
		id       BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		message  TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_informational_texts_norm
		ON informational_texts (lower(btrim(message)));

	-- Fact table, normalized variant. Travel direction and informational
	-- text are outside the conflict key.
	CREATE TABLE IF NOT EXISTS status_readings (
		id                      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		facility_id             INTEGER NOT NULL,
		facility_modifier       TEXT,
		route_id                INTEGER NOT NULL,
		cardinal_direction_id   BIGINT NOT NULL REFERENCES cardinal_directions(id),
		travel_direction_id     BIGINT NOT NULL REFERENCES travel_directions(id),
		informational_text_id   BIGINT NOT NULL REFERENCES informational_texts(id),
		is_crossing_closed      BOOLEAN NOT NULL DEFAULT FALSE,
		route_speed             DOUBLE PRECISION,
		route_travel_time       DOUBLE PRECISION,
		route_speed_hist        TEXT,
		route_travel_time_hist  TEXT,
		speed_status_message    TEXT,
		time_status_message     TEXT,
		is_data_available       BOOLEAN NOT NULL DEFAULT TRUE,
		time_stamp              TIMESTAMPTZ NOT NULL,
		CONSTRAINT status_readings_natural_key
			UNIQUE (facility_id, route_id, cardinal_direction_id, time_stamp)
	);

	CREATE INDEX IF NOT EXISTS idx_status_readings_time ON status_readings(time_stamp);

	-- Fact table, denormalized variant: the original single-table pipeline
	-- with its narrower conflict key.
	CREATE TABLE IF NOT EXISTS crossing_times (
		id                      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		facility_id             INTEGER NOT NULL,
		xcm_facility_id         INTEGER,
		facility_modifier       TEXT,
		cardinal_direction      TEXT NOT NULL DEFAULT '',
		travel_direction        TEXT,
		crossing_display_name   TEXT,
		is_crossing_closed      BOOLEAN,
		route_id                INTEGER,
		route_speed             DOUBLE PRECISION,
		route_travel_time       DOUBLE PRECISION,
		route_speed_hist        TEXT,
		route_travel_time_hist  TEXT,
		route_name              TEXT,
		time_stamp              TIMESTAMPTZ NOT NULL,
		informational_text      TEXT,
		speed_status_message    TEXT,
		time_status_message     TEXT,
		is_data_available       BOOLEAN,
		CONSTRAINT crossing_times_natural_key
			UNIQUE (facility_id, cardinal_direction, time_stamp)
	);

	CREATE INDEX IF NOT EXISTS idx_crossing_times_name_time
		ON crossing_times(crossing_display_name, time_stamp);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// BeginRun opens a transaction scoped to one pipeline run. All dimension and
// fact writes for the run commit or roll back together.
func (d *DB) BeginRun(ctx context.Context) (pipeline.RunStore, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return &RunTx{tx: tx}, nil
}

// RunTx is the store surface of a single pipeline run.
type RunTx struct {
	tx pgx.Tx
}

// Commit commits the run's writes.
func (t *RunTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback discards the run's writes. Safe to call after Commit.
func (t *RunTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err == nil || err == pgx.ErrTxClosed {
		return nil
	}
	return err
}

// UpsertFacilities inserts candidate facilities, ignoring natural-key
// collisions. Existing rows are never overwritten.
func (t *RunTx) UpsertFacilities(ctx context.Context, rows []domain.Facility) error {
	for _, f := range rows {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO facilities (facility_id, xcm_facility_id, facility_modifier, crossing_display_name)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT ON CONSTRAINT facilities_natural_key DO NOTHING
		`, f.FacilityID, f.XCMFacilityID, f.Modifier, f.CrossingDisplayName)
		if err != nil {
			return fmt.Errorf("upsert facility %d: %w", f.FacilityID, err)
		}
	}
	return nil
}

// UpsertRoutes inserts candidate routes with route_id as the conflict key.
func (t *RunTx) UpsertRoutes(ctx context.Context, rows []domain.Route) error {
	for _, r := range rows {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO routes (route_id, route_name, facility_id, facility_modifier)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (route_id) DO NOTHING
		`, r.RouteID, r.RouteName, r.FacilityID, r.FacilityModifier)
		if err != nil {
			return fmt.Errorf("upsert route %d: %w", r.RouteID, err)
		}
	}
	return nil
}

// UpsertCardinalDirections inserts direction labels, original casing
// preserved, conflicting on the normalized form.
func (t *RunTx) UpsertCardinalDirections(ctx context.Context, values []string) error {
	return t.upsertLabels(ctx, "cardinal_directions", "direction", values)
}

// SelectCardinalDirections fetches all rows whose normalized direction is in
// the given normalized key set.
func (t *RunTx) SelectCardinalDirections(ctx context.Context, normalized []string) ([]domain.Label, error) {
	return t.selectLabels(ctx, "cardinal_directions", "direction", normalized)
}

// UpsertTravelDirections inserts travel-direction labels.
func (t *RunTx) UpsertTravelDirections(ctx context.Context, values []string) error {
	return t.upsertLabels(ctx, "travel_directions", "direction", values)
}

// SelectTravelDirections fetches travel-direction rows by normalized key.
func (t *RunTx) SelectTravelDirections(ctx context.Context, normalized []string) ([]domain.Label, error) {
	return t.selectLabels(ctx, "travel_directions", "direction", normalized)
}

// UpsertInformationalTexts inserts informational messages.
func (t *RunTx) UpsertInformationalTexts(ctx context.Context, values []string) error {
	return t.upsertLabels(ctx, "informational_texts", "message", values)
}

// SelectInformationalTexts fetches informational-text rows by normalized key.
func (t *RunTx) SelectInformationalTexts(ctx context.Context, normalized []string) ([]domain.Label, error) {
	return t.selectLabels(ctx, "informational_texts", "message", normalized)
}

// upsertLabels and selectLabels share the three string dimensions' shape.
// Table and column names are fixed internal constants, never caller input.
func (t *RunTx) upsertLabels(ctx context.Context, table, column string, values []string) error {
	for _, v := range values {
		query := fmt.Sprintf(`
			INSERT INTO %s (%s) VALUES ($1)
			ON CONFLICT (lower(btrim(%s))) DO NOTHING
		`, table, column, column)
		if _, err := t.tx.Exec(ctx, query, v); err != nil {
			return fmt.Errorf("upsert %s %q: %w", table, v, err)
		}
	}
	return nil
}

func (t *RunTx) selectLabels(ctx context.Context, table, column string, normalized []string) ([]domain.Label, error) {
	query := fmt.Sprintf(`
		SELECT id, %s FROM %s WHERE lower(btrim(%s)) = ANY($1)
	`, column, table, column)

	rows, err := t.tx.Query(ctx, query, normalized)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	var labels []domain.Label
	for rows.Next() {
		var l domain.Label
		if err := rows.Scan(&l.ID, &l.Value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return labels, nil
}

// InsertStatusReadings writes resolved fact rows, dropping duplicates on the
// (facility, route, cardinal direction, minute) key. Returns the number of
// rows actually inserted.
func (t *RunTx) InsertStatusReadings(ctx context.Context, rows []domain.StatusReading) (int64, error) {
	var inserted int64
	for _, r := range rows {
		tag, err := t.tx.Exec(ctx, `
			INSERT INTO status_readings (
				facility_id, facility_modifier, route_id,
				cardinal_direction_id, travel_direction_id, informational_text_id,
				is_crossing_closed, route_speed, route_travel_time,
				route_speed_hist, route_travel_time_hist,
				speed_status_message, time_status_message,
				is_data_available, time_stamp
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT ON CONSTRAINT status_readings_natural_key DO NOTHING
		`,
			r.FacilityID, r.FacilityModifier, r.RouteID,
			r.CardinalDirectionID, r.TravelDirectionID, r.InformationalTextID,
			r.IsCrossingClosed, r.RouteSpeed, r.RouteTravelTime,
			r.RouteSpeedHist, r.RouteTravelTimeHist,
			r.SpeedStatusMessage, r.TimeStatusMessage,
			r.IsDataAvailable, r.TimeStamp,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert status reading facility=%d route=%d: %w", r.FacilityID, r.RouteID, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// UpsertCrossingTimes writes denormalized rows with the original pipeline's
// (facility_id, cardinal_direction, time_stamp) conflict key. Returns the
// number of rows actually inserted.
func (t *RunTx) UpsertCrossingTimes(ctx context.Context, rows []domain.CrossingTime) (int64, error) {
	var inserted int64
	for _, r := range rows {
		tag, err := t.tx.Exec(ctx, `
			INSERT INTO crossing_times (
				facility_id, xcm_facility_id, facility_modifier,
				cardinal_direction, travel_direction, crossing_display_name,
				is_crossing_closed, route_id, route_speed, route_travel_time,
				route_speed_hist, route_travel_time_hist, route_name,
				time_stamp, informational_text,
				speed_status_message, time_status_message, is_data_available
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			ON CONFLICT ON CONSTRAINT crossing_times_natural_key DO NOTHING
		`,
			r.FacilityID, r.XCMFacilityID, r.FacilityModifier,
			r.CardinalDirection, r.TravelDirection, r.CrossingDisplayName,
			r.IsCrossingClosed, r.RouteID, r.RouteSpeed, r.RouteTravelTime,
			r.RouteSpeedHist, r.RouteTravelTimeHist, r.RouteName,
			r.TimeStamp, r.InformationalText,
			r.SpeedStatusMessage, r.TimeStatusMessage, r.IsDataAvailable,
		)
		if err != nil {
			return inserted, fmt.Errorf("upsert crossing time facility=%d: %w", r.FacilityID, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}
