package fetcher

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestReadCSVRecords(t *testing.T) {
	input := "\ufeffName, Suburb ,Postcode\nBrisbane Youth Legal Service,Fortitude Valley,4006\n\n,,\nheadspace, Ipswich ,4305\n"
	recs, err := ReadCSVRecords(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Brisbane Youth Legal Service", recs[0]["name"])
	assert.Equal(t, "Fortitude Valley", recs[0]["suburb"])
	assert.Equal(t, "Ipswich", recs[1]["suburb"])
	assert.Equal(t, "4305", recs[1]["postcode"])
}

func TestReadCSVRecords_ShortRow(t *testing.T) {
	recs, err := ReadCSVRecords(context.Background(), strings.NewReader("a,b,c\n1\n"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "1", recs[0]["a"])
	_, ok := recs[0]["c"]
	assert.False(t, ok)
}

func TestStreamCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a\nb\n"), CSVOptions{})
	for range rowCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestStreamCSV_PipeDelimited(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("a|b\n"), CSVOptions{Delimiter: '|'})
	var rows [][]string
	for r := range rowCh {
		rows = append(rows, r)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)
}

func TestDecodeJSONRecords(t *testing.T) {
	recs, err := DecodeJSONRecords([]byte(`[{"name":"A"},{"name":"B"}]`))
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = DecodeJSONRecords([]byte(`{"meta":{},"records":[{"name":"A"}]}`))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "A", recs[0]["name"])

	recs, err = DecodeJSONRecords([]byte("  "))
	require.NoError(t, err)
	assert.Nil(t, recs)

	_, err = DecodeJSONRecords([]byte(`{"meta":{}}`))
	assert.Error(t, err)

	_, err = DecodeJSONRecords([]byte(`[1,`))
	assert.Error(t, err)
}

func TestDecodeJSONObject(t *testing.T) {
	type obj struct {
		Success bool `json:"success"`
	}
	got, err := DecodeJSONObject[obj](strings.NewReader(`{"success":true}`))
	require.NoError(t, err)
	assert.True(t, got.Success)

	_, err = DecodeJSONObject[obj](strings.NewReader(`nope`))
	assert.Error(t, err)
}

func TestReadXLSXRecords(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Services")
	require.NoError(t, err)
	for _, rowData := range [][]string{
		{"Service Name", "Suburb"},
		{"Youth Advocacy Centre", "Spring Hill"},
		{"", ""},
	} {
		row := sheet.AddRow()
		for _, v := range rowData {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	recs, err := ReadXLSXRecords(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Youth Advocacy Centre", recs[0]["service name"])
	assert.Equal(t, "Spring Hill", recs[0]["suburb"])
}

func TestReadXLSXRecords_Garbage(t *testing.T) {
	_, err := ReadXLSXRecords([]byte("not a zip"))
	assert.Error(t, err)
}
