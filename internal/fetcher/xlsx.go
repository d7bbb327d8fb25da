package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSXRecords parses the first sheet of an XLSX workbook whose first row
// is a header, returning one map per data row keyed by lowercased header.
func ReadXLSXRecords(data []byte) ([]map[string]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	var header []string
	var out []map[string]string
	for _, row := range f.Sheets[0].Rows {
		cells := rowToStrings(row)
		if header == nil {
			header = make([]string, len(cells))
			for i, h := range cells {
				header[i] = strings.ToLower(strings.TrimSpace(h))
			}
			continue
		}
		if blankRow(cells) {
			continue
		}
		out = append(out, zipRow(header, cells))
	}
	return out, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}
