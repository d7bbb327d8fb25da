package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/catalogue-cli/internal/model"
)

const sheetName = "entities"

func writeXLSX(path string, entities []model.ServiceEntity) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, name := range columnNames() {
		header.AddCell().SetString(name)
	}
	for _, e := range entities {
		row := sheet.AddRow()
		for _, c := range entityColumns {
			cell := row.AddCell()
			switch v := c.value(e).(type) {
			case string:
				cell.SetString(v)
			case float64:
				cell.SetFloat(v)
			case int64:
				cell.SetInt64(v)
			case bool:
				cell.SetBool(v)
			}
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
