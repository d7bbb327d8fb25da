package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/catalogue-cli/internal/model"
	"github.com/sells-group/catalogue-cli/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 10, 3, 17, 0, 0, 0, time.UTC)
	runs := []store.RunRecord{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			Phase:      model.PhaseDone,
			StartedAt:  now,
			FinishedAt: now.Add(3 * time.Minute),
			Entities:   120,
			Stats:      model.RunStatistics{DuplicatesMerged: 14},
		},
		{
			ID:        "def12345",
			Phase:     model.PhaseFailed,
			StartedAt: now.Add(-time.Hour),
			Errors:    9,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "PHASE")
	assert.Contains(t, out, "abc12345 ")
	assert.NotContains(t, out, "abc12345-")
	assert.Contains(t, out, "2026-10-03 17:00")
	assert.Contains(t, out, "3m0s")
	assert.Contains(t, out, "120")
	assert.Contains(t, out, "14")
	assert.Contains(t, out, "failed")
}
