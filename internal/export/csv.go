package export

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalogue-cli/internal/model"
)

func writeCSV(path string, entities []model.ServiceEntity) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columnNames()); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, e := range entities {
		if err := w.Write(textRow(e)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}
