package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalogue-cli/internal/config"
	"github.com/sells-group/catalogue-cli/internal/source"
)

func TestFormatSources(t *testing.T) {
	cfgs := []config.SourceConfig{
		{Name: "data_qld", Type: "ckan", BaseURL: "https://www.data.qld.gov.au/api/3/action", State: "QLD", SearchTerms: []string{"youth services", "legal aid"}},
		{Name: "old_portal", Type: "ckan", BaseURL: "https://old.example.org/api/3/action", Disabled: true},
	}
	c := &config.Config{Sources: cfgs}
	reg, err := source.NewRegistry(c.EnabledSources(), config.SourceRunConfig{MaxResults: 10})
	require.NoError(t, err)

	var buf bytes.Buffer
	formatSources(&buf, cfgs, reg, true)

	out := buf.String()
	assert.Contains(t, out, "data_qld")
	assert.Contains(t, out, "QLD")
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "data_qld:\n")
	assert.NotContains(t, out, "old_portal:\n")
}
