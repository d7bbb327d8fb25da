package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/catalogue-cli/internal/model"
)

// SQLiteStore keeps the catalogue in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS service_entities (
	id                TEXT PRIMARY KEY,
	run_id            TEXT NOT NULL,
	name              TEXT NOT NULL,
	organization_name TEXT,
	state             TEXT,
	suburb            TEXT,
	postcode          TEXT,
	categories        TEXT NOT NULL DEFAULT '[]',
	youth_specific    INTEGER NOT NULL DEFAULT 0,
	needs_review      INTEGER NOT NULL DEFAULT 0,
	quality           REAL NOT NULL DEFAULT 0,
	latitude          REAL,
	longitude         REAL,
	location          BLOB,
	record            TEXT NOT NULL,
	loaded_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	phase       TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	entities    INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	stats       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_service_entities_state ON service_entities(state);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Name implements the pipeline sink interface.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Write implements the pipeline sink interface.
func (s *SQLiteStore) Write(ctx context.Context, b *model.Batch) error {
	return s.LoadBatch(ctx, b)
}

// LoadBatch swaps the catalogue for the batch's entities and records the
// run, all in one transaction.
func (s *SQLiteStore) LoadBatch(ctx context.Context, b *model.Batch) (err error) {
	rec, stats, err := runRecord(b)
	if err != nil {
		return err
	}
	loadedAt := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM service_entities`)
	if err != nil {
		return eris.Wrap(err, "sqlite: clear entities")
	}
	deleted, _ := res.RowsAffected()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO service_entities
		(id, run_id, name, organization_name, state, suburb, postcode, categories,
		 youth_specific, needs_review, quality, latitude, longitude, location, record, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for _, e := range b.Entities {
		args, err := sqliteEntityArgs(b.RunID, loadedAt, e)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: insert entity %s", e.ID)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, phase, started_at, finished_at, entities, errors, stats)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET phase = excluded.phase, started_at = excluded.started_at,
		   finished_at = excluded.finished_at, entities = excluded.entities,
		   errors = excluded.errors, stats = excluded.stats`,
		rec.ID, string(rec.Phase), rec.StartedAt, rec.FinishedAt, rec.Entities, rec.Errors, string(stats),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: record run")
	}
	if err = tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit")
	}

	zap.L().Info("sqlite: batch loaded",
		zap.String("component", "store"),
		zap.String("run_id", b.RunID),
		zap.Int64("replaced", deleted),
		zap.Int("inserted", len(b.Entities)),
	)
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, phase, started_at, finished_at, entities, errors, stats FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r        RunRecord
			phase    string
			finished sql.NullTime
			stats    string
		)
		if err := rows.Scan(&r.ID, &phase, &r.StartedAt, &finished, &r.Entities, &r.Errors, &stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Phase = model.Phase(phase)
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		if err := json.Unmarshal([]byte(stats), &r.Stats); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode stats for run %s", r.ID)
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// Entity loads one stored entity by ID, or nil when absent.
func (s *SQLiteStore) Entity(ctx context.Context, id string) (*model.ServiceEntity, error) {
	var (
		record string
		loc    []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT record, location FROM service_entities WHERE id = ?`, id).Scan(&record, &loc)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get entity %s", id)
	}
	var e model.ServiceEntity
	if err := json.Unmarshal([]byte(record), &e); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode entity %s", id)
	}
	coords, err := decodePoint(loc)
	if err != nil {
		return nil, err
	}
	e.Record.Location.Coordinates = coords
	return &e, nil
}

func sqliteEntityArgs(runID string, loadedAt time.Time, e model.ServiceEntity) ([]any, error) {
	rec := e.Record
	loc, err := pointEWKB(rec.Location.Coordinates)
	if err != nil {
		return nil, err
	}
	cats, err := json.Marshal(categoryNames(rec.Categories))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal categories")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: marshal entity %s", e.ID)
	}
	var lat, lng sql.NullFloat64
	if c := rec.Location.Coordinates; c != nil {
		lat = sql.NullFloat64{Float64: c.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: c.Lng, Valid: true}
	}
	return []any{
		e.ID, runID, rec.Name,
		nullable(rec.Organization.Name), nullable(rec.Location.State),
		nullable(rec.Location.Suburb), nullable(rec.Location.Postcode),
		string(cats), rec.YouthSpecific, e.NeedsReview, rec.Quality.Overall,
		lat, lng, loc, string(data), loadedAt,
	}, nil
}
