// Package export writes finished batches to disk, one directory per state.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/catalogue-cli/internal/model"
)

// Format is an output file format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

// AllFormats lists every supported format in write order.
var AllFormats = []Format{FormatJSON, FormatYAML, FormatCSV, FormatXLSX, FormatParquet}

// ParseFormats validates format names. Empty input selects every format.
func ParseFormats(names []string) ([]Format, error) {
	if len(names) == 0 {
		return slices.Clone(AllFormats), nil
	}
	var out []Format
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		if !slices.Contains(AllFormats, f) {
			return nil, eris.Errorf("export: unknown format %q", n)
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Report is the batch without its entities, written as report.json.
type Report struct {
	RunID      string                  `json:"run_id"`
	Entities   int                     `json:"entities"`
	ByState    map[string]int          `json:"by_state"`
	Stats      model.RunStatistics     `json:"stats"`
	Validation model.ValidationReport  `json:"validation"`
	Dedup      model.DedupReport       `json:"dedup"`
	Failures   []model.Failure         `json:"failures"`
	Compliance model.ComplianceSummary `json:"compliance"`
}

// Writer writes batches under Dir as
//
//	run=<run id>/state=<STATE>/entities.<ext>
//	run=<run id>/report.json
type Writer struct {
	dir     string
	formats []Format
}

// NewWriter creates a writer for the given formats.
func NewWriter(dir string, formats []string) (*Writer, error) {
	if dir == "" {
		return nil, eris.New("export: output directory is required")
	}
	fs, err := ParseFormats(formats)
	if err != nil {
		return nil, err
	}
	return &Writer{dir: dir, formats: fs}, nil
}

// Name implements the pipeline sink interface.
func (w *Writer) Name() string { return "export" }

// RunDir returns the directory a batch with runID is written to.
func (w *Writer) RunDir(runID string) string {
	return filepath.Join(w.dir, "run="+runID)
}

// Write writes every state partition in every format, then the report.
func (w *Writer) Write(ctx context.Context, b *model.Batch) error {
	log := zap.L().With(zap.String("component", "export"), zap.String("run_id", b.RunID))
	runDir := w.RunDir(b.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return eris.Wrap(err, "export: create run dir")
	}

	states, groups := b.EntitiesByState()
	byState := make(map[string]int, len(states))
	for _, st := range states {
		if err := ctx.Err(); err != nil {
			return err
		}
		entities := groups[st]
		byState[st] = len(entities)
		partDir := filepath.Join(runDir, "state="+st)
		if err := os.MkdirAll(partDir, 0o755); err != nil {
			return eris.Wrapf(err, "export: create partition %s", st)
		}
		for _, f := range w.formats {
			if err := writeFormat(f, partitionPath(runDir, st, f), entities); err != nil {
				return err
			}
		}
		log.Debug("partition written", zap.String("state", st), zap.Int("entities", len(entities)))
	}

	rep := Report{
		RunID:      b.RunID,
		Entities:   len(b.Entities),
		ByState:    byState,
		Stats:      b.Stats,
		Validation: b.Validation,
		Dedup:      b.Dedup,
		Failures:   b.Failures,
		Compliance: b.Compliance,
	}
	if err := writeJSON(filepath.Join(runDir, "report.json"), rep); err != nil {
		return err
	}
	log.Info("batch exported",
		zap.String("dir", runDir),
		zap.Int("partitions", len(states)),
		zap.Int("entities", len(b.Entities)),
	)
	return nil
}

func writeFormat(f Format, path string, entities []model.ServiceEntity) error {
	switch f {
	case FormatJSON:
		return writeJSON(path, entities)
	case FormatYAML:
		return writeYAML(path, entities)
	case FormatCSV:
		return writeCSV(path, entities)
	case FormatXLSX:
		return writeXLSX(path, entities)
	case FormatParquet:
		return writeParquet(path, entities)
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "export: marshal %s", filepath.Base(path))
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

func writeYAML(path string, entities []model.ServiceEntity) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(entities); err != nil {
		return eris.Wrapf(err, "export: encode %s", path)
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "export: close yaml encoder")
	}
	return nil
}

// partitionPath is where a state's entities land for format f.
func partitionPath(runDir, state string, f Format) string {
	return filepath.Join(runDir, fmt.Sprintf("state=%s", state), "entities."+string(f))
}
