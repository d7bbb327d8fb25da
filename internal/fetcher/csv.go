package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 = none
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads CSV rows and sends them to a channel. Both channels are
// closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.Comment = opts.Comment
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			if opts.TrimSpace {
				for i := range record {
					record[i] = strings.TrimSpace(record[i])
				}
			}
			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSVRecords parses a CSV document whose first row is a header and
// returns one map per data row, keyed by lowercased header. Blank rows are skipped.
func ReadCSVRecords(ctx context.Context, r io.Reader) ([]map[string]string, error) {
	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{LazyQuotes: true, TrimSpace: true})

	var header []string
	var out []map[string]string
	for row := range rowCh {
		if header == nil {
			header = make([]string, len(row))
			for i, h := range row {
				header[i] = strings.ToLower(strings.TrimPrefix(h, "\ufeff"))
			}
			continue
		}
		if blankRow(row) {
			continue
		}
		out = append(out, zipRow(header, row))
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return out, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func zipRow(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, h := range header {
		if h == "" || i >= len(row) {
			continue
		}
		m[h] = row[i]
	}
	return m
}
