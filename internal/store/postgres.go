package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalogue-cli/internal/db"
	"github.com/sells-group/catalogue-cli/internal/model"
)

const (
	entitiesTable = "catalogue.service_entities"
	runsTable     = "catalogue.runs"
)

// entityColumns is the COPY column order for entitiesTable.
var entityColumns = []string{
	"id", "run_id", "name", "organization_name", "state", "suburb", "postcode",
	"categories", "youth_specific", "needs_review", "quality", "location",
	"record", "merged_from", "sources", "loaded_at",
}

var runColumns = []string{"id", "phase", "started_at", "finished_at", "entities", "errors", "stats"}

// PostgresStore loads batches into PostGIS-enabled Postgres.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	if maxConns > 0 {
		pgxCfg.MaxConns = maxConns
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE SCHEMA IF NOT EXISTS catalogue;

CREATE TABLE IF NOT EXISTS catalogue.service_entities (
	id                TEXT PRIMARY KEY,
	run_id            TEXT NOT NULL,
	name              TEXT NOT NULL,
	organization_name TEXT,
	state             TEXT,
	suburb            TEXT,
	postcode          TEXT,
	categories        TEXT[] NOT NULL DEFAULT '{}',
	youth_specific    BOOLEAN NOT NULL DEFAULT false,
	needs_review      BOOLEAN NOT NULL DEFAULT false,
	quality           DOUBLE PRECISION NOT NULL DEFAULT 0,
	location          geometry(Point, 4326),
	record            JSONB NOT NULL,
	merged_from       TEXT[] NOT NULL DEFAULT '{}',
	sources           TEXT[] NOT NULL DEFAULT '{}',
	loaded_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS catalogue.runs (
	id          TEXT PRIMARY KEY,
	phase       TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	entities    INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	stats       JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_service_entities_state ON catalogue.service_entities(state);
CREATE INDEX IF NOT EXISTS idx_service_entities_location ON catalogue.service_entities USING GIST(location);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON catalogue.runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Name implements the pipeline sink interface.
func (s *PostgresStore) Name() string { return "postgres" }

// Write implements the pipeline sink interface.
func (s *PostgresStore) Write(ctx context.Context, b *model.Batch) error {
	return s.LoadBatch(ctx, b)
}

// LoadBatch swaps the catalogue for the batch's entities and records the
// run, all in one transaction.
func (s *PostgresStore) LoadBatch(ctx context.Context, b *model.Batch) error {
	loadedAt := s.now().UTC()
	rows := make([][]any, 0, len(b.Entities))
	for _, e := range b.Entities {
		row, err := postgresEntityRow(b.RunID, loadedAt, e)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	rec, stats, err := runRecord(b)
	if err != nil {
		return err
	}

	var deleted, inserted int64
	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		deleted, inserted, err = db.ReplaceTable(ctx, tx, entitiesTable, entityColumns, rows)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, db.InsertSQL(runsTable, runColumns, "id"),
			rec.ID, string(rec.Phase), rec.StartedAt, rec.FinishedAt, rec.Entities, rec.Errors, stats)
		return eris.Wrap(err, "postgres: record run")
	})
	if err != nil {
		return err
	}

	zap.L().Info("postgres: batch loaded",
		zap.String("component", "store"),
		zap.String("run_id", b.RunID),
		zap.Int64("replaced", deleted),
		zap.Int64("inserted", inserted),
	)
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *PostgresStore) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, phase, started_at, finished_at, entities, errors, stats FROM catalogue.runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r        RunRecord
			phase    string
			finished *time.Time
			stats    []byte
		)
		if err := rows.Scan(&r.ID, &phase, &r.StartedAt, &finished, &r.Entities, &r.Errors, &stats); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Phase = model.Phase(phase)
		if finished != nil {
			r.FinishedAt = *finished
		}
		if err := json.Unmarshal(stats, &r.Stats); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode stats for run %s", r.ID)
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func postgresEntityRow(runID string, loadedAt time.Time, e model.ServiceEntity) ([]any, error) {
	rec := e.Record
	loc, err := pointEWKB(rec.Location.Coordinates)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: marshal entity %s", e.ID)
	}
	mergedFrom := e.MergedFrom
	if mergedFrom == nil {
		mergedFrom = []string{}
	}
	return []any{
		e.ID,
		runID,
		rec.Name,
		nullable(rec.Organization.Name),
		nullable(rec.Location.State),
		nullable(rec.Location.Suburb),
		nullable(rec.Location.Postcode),
		categoryNames(rec.Categories),
		rec.YouthSpecific,
		e.NeedsReview,
		rec.Quality.Overall,
		loc,
		data,
		mergedFrom,
		e.SourceNames(),
		loadedAt,
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
