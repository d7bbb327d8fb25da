package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/catalogue-cli/internal/model"
)

func testBatch() *model.Batch {
	stats := model.NewRunStatistics("run-7")
	stats.Phase = model.PhaseDone
	stats.ValidCandidates = 3
	return &model.Batch{
		RunID: "run-7",
		Entities: []model.ServiceEntity{
			{
				ID: "e1",
				Record: model.CandidateRecord{
					SourceID: "alpha:1",
					Name:     "Brisbane Youth Legal Service",
					Location: model.Location{
						Address:     "12 Ann Street",
						Suburb:      "Fortitude Valley",
						State:       "QLD",
						Postcode:    "4006",
						Coordinates: &model.Coordinates{Lat: -27.457, Lng: 153.034},
					},
					Contact:       model.Contact{Phone: "(07) 3000 1234"},
					Categories:    []model.Category{model.CategoryAdvocacy, model.CategoryLegalAid},
					AgeRange:      model.AgeRange{Min: model.IntPtr(10), Max: model.IntPtr(25)},
					YouthSpecific: true,
					Quality:       model.QualityScore{Overall: 0.61},
					Provenance:    model.Provenance{SourceName: "alpha", FetchedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
				},
				MergedFrom: []string{"alpha:1", "beta:4"},
				Sources:    []model.Provenance{{SourceName: "alpha"}, {SourceName: "beta"}},
			},
			{
				ID:          "e2",
				Record:      model.CandidateRecord{SourceID: "beta:9", Name: "Drop-in Centre", Location: model.Location{Suburb: "Somewhere"}},
				MergedFrom:  []string{"beta:9"},
				NeedsReview: true,
			},
		},
		Stats: stats,
		Validation: model.ValidationReport{
			Rejections: []model.Rejection{{SourceID: "beta:2", SourceName: "beta", Errors: []model.FieldError{{Field: "name", Message: "required"}}}},
		},
		Compliance: model.ComplianceSummary{BlockedDomains: map[string]string{"bad.example.org": "configured"}},
	}
}

func TestParseFormats(t *testing.T) {
	all, err := ParseFormats(nil)
	require.NoError(t, err)
	assert.Equal(t, AllFormats, all)

	fs, err := ParseFormats([]string{"CSV", " parquet", "csv"})
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatCSV, FormatParquet}, fs)

	_, err = ParseFormats([]string{"xml"})
	assert.Error(t, err)
}

func TestNewWriter_RequiresDir(t *testing.T) {
	_, err := NewWriter("", nil)
	assert.Error(t, err)
}

func TestWriter_PartitionsByState(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "export", w.Name())

	require.NoError(t, w.Write(context.Background(), testBatch()))

	runDir := w.RunDir("run-7")
	for _, st := range []string{"QLD", model.UnknownState} {
		for _, f := range AllFormats {
			info, err := os.Stat(partitionPath(runDir, st, f))
			require.NoError(t, err, "%s/%s", st, f)
			assert.Positive(t, info.Size())
		}
	}
	_, err = os.Stat(filepath.Join(runDir, "state=QLD", "entities.parquet"))
	assert.NoError(t, err)
}

func TestWriter_CSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, []string{"csv"})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), testBatch()))

	f, err := os.Open(partitionPath(w.RunDir("run-7"), "QLD", FormatCSV))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, columnNames(), rows[0])

	rec := make(map[string]string)
	for i, name := range rows[0] {
		rec[name] = rows[1][i]
	}
	assert.Equal(t, "Brisbane Youth Legal Service", rec["name"])
	assert.Equal(t, "advocacy;legal_aid", rec["categories"])
	assert.Equal(t, "-27.457", rec["latitude"])
	assert.Equal(t, "10", rec["age_min"])
	assert.Equal(t, "true", rec["youth_specific"])
	assert.Equal(t, "alpha;beta", rec["sources"])
	assert.Equal(t, "", rec["email"])

	_, err = os.Stat(partitionPath(w.RunDir("run-7"), "QLD", FormatJSON))
	assert.True(t, os.IsNotExist(err), "only requested formats are written")
}

func TestWriter_StructuredFormats(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, []string{"json", "yaml"})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), testBatch()))
	runDir := w.RunDir("run-7")

	data, err := os.ReadFile(partitionPath(runDir, model.UnknownState, FormatJSON))
	require.NoError(t, err)
	var fromJSON []model.ServiceEntity
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	require.Len(t, fromJSON, 1)
	assert.True(t, fromJSON[0].NeedsReview)

	data, err = os.ReadFile(partitionPath(runDir, "QLD", FormatYAML))
	require.NoError(t, err)
	var fromYAML []model.ServiceEntity
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	require.Len(t, fromYAML, 1)
	assert.Equal(t, "Brisbane Youth Legal Service", fromYAML[0].Record.Name)
	assert.Equal(t, 25, *fromYAML[0].Record.AgeRange.Max)
}

func TestWriter_Report(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, []string{"json"})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), testBatch()))

	data, err := os.ReadFile(filepath.Join(w.RunDir("run-7"), "report.json"))
	require.NoError(t, err)
	var rep Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, "run-7", rep.RunID)
	assert.Equal(t, 2, rep.Entities)
	assert.Equal(t, map[string]int{"QLD": 1, model.UnknownState: 1}, rep.ByState)
	assert.Equal(t, 3, rep.Stats.ValidCandidates)
	require.Len(t, rep.Validation.Rejections, 1)
	assert.Equal(t, "configured", rep.Compliance.BlockedDomains["bad.example.org"])
}

func TestWriter_XLSX(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, []string{"xlsx"})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), testBatch()))

	f, err := xlsx.OpenFile(partitionPath(w.RunDir("run-7"), "QLD", FormatXLSX))
	require.NoError(t, err)
	sheet, ok := f.Sheet[sheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "e1", sheet.Rows[1].Cells[0].String())
}

func TestWriter_Parquet(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, []string{"parquet"})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), testBatch()))

	data, err := os.ReadFile(partitionPath(w.RunDir("run-7"), "QLD", FormatParquet))
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))
}

func TestParquetRow_OmitsAbsentValues(t *testing.T) {
	row, err := parquetRow(testBatch().Entities[1])
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(row), &m))
	assert.Equal(t, "Drop-in Centre", m["name"])
	assert.NotContains(t, m, "latitude")
	assert.NotContains(t, m, "age_min")
	assert.Equal(t, true, m["needs_review"])
}

func TestWriter_CancelledContext(t *testing.T) {
	w, err := NewWriter(t.TempDir(), []string{"csv"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Write(ctx, testBatch()), context.Canceled)
}
