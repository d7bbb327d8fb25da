// Package store persists finished batches: the deduplicated catalogue and
// the run history.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/catalogue-cli/internal/config"
	"github.com/sells-group/catalogue-cli/internal/model"
)

// SRID is the spatial reference of stored coordinates (WGS 84).
const SRID = 4326

// BatchLoader replaces the stored catalogue with a batch.
type BatchLoader interface {
	LoadBatch(ctx context.Context, b *model.Batch) error
}

// Store is a BatchLoader with run history and a lifecycle. Every Store is
// also a pipeline sink via Name and Write.
type Store interface {
	BatchLoader
	Name() string
	Write(ctx context.Context, b *model.Batch) error
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	Migrate(ctx context.Context) error
	Close() error
}

// RunRecord is one row of run history.
type RunRecord struct {
	ID         string              `json:"id"`
	Phase      model.Phase         `json:"phase"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Entities   int                 `json:"entities"`
	Errors     int                 `json:"errors"`
	Stats      model.RunStatistics `json:"stats"`
}

// Open connects to the configured store and applies its migration. Driver
// "none" (or empty) returns a nil Store.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, cfg.MaxConns)
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// pointEWKB encodes coordinates as an EWKB point, or nil when absent.
func pointEWKB(c *model.Coordinates) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	p, err := geom.NewPoint(geom.XY).SetCoords(geom.Coord{c.Lng, c.Lat})
	if err != nil {
		return nil, eris.Wrap(err, "store: build point")
	}
	data, err := ewkb.Marshal(p.SetSRID(SRID), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode EWKB")
	}
	return data, nil
}

// decodePoint reverses pointEWKB.
func decodePoint(data []byte) (*model.Coordinates, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "store: decode EWKB")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return nil, eris.Errorf("store: expected point, got %T", g)
	}
	return &model.Coordinates{Lat: p.Y(), Lng: p.X()}, nil
}

func categoryNames(cs []model.Category) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

// runRecord summarizes a batch for the run history table.
func runRecord(b *model.Batch) (RunRecord, []byte, error) {
	rec := RunRecord{
		ID:         b.RunID,
		Phase:      b.Stats.Phase,
		StartedAt:  b.Stats.StartedAt.UTC(),
		FinishedAt: b.Stats.FinishedAt.UTC(),
		Entities:   len(b.Entities),
		Errors:     b.Stats.Errors,
		Stats:      b.Stats,
	}
	stats, err := json.Marshal(b.Stats)
	if err != nil {
		return rec, nil, eris.Wrap(err, "store: marshal run stats")
	}
	return rec, stats, nil
}
