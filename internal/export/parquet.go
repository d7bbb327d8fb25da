package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/sells-group/catalogue-cli/internal/model"
)

// parquetSchema is the JSON schema definition for entityColumns.
var parquetSchema = buildParquetSchema()

func buildParquetSchema() string {
	fields := make([]map[string]string, 0, len(entityColumns))
	for _, c := range entityColumns {
		fields = append(fields, map[string]string{"Tag": parquetTag(c)})
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func parquetTag(c column) string {
	switch c.kind {
	case kindFloat:
		return fmt.Sprintf("name=%s, type=DOUBLE, repetitiontype=OPTIONAL", c.name)
	case kindInt:
		return fmt.Sprintf("name=%s, type=INT64, repetitiontype=OPTIONAL", c.name)
	case kindBool:
		return fmt.Sprintf("name=%s, type=BOOLEAN, repetitiontype=OPTIONAL", c.name)
	default:
		return fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", c.name)
	}
}

// parquetRow renders an entity as a JSON object; absent values are omitted.
func parquetRow(e model.ServiceEntity) (string, error) {
	row := make(map[string]any, len(entityColumns))
	for _, c := range entityColumns {
		if v := c.value(e); v != nil {
			row[c.name] = v
		}
	}
	b, err := json.Marshal(row)
	if err != nil {
		return "", eris.Wrap(err, "export: marshal parquet row")
	}
	return string(b), nil
}

func writeParquet(path string, entities []model.ServiceEntity) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	pfw := writerfile.NewWriterFile(f)
	pw, err := writer.NewJSONWriter(parquetSchema, pfw, 4)
	if err != nil {
		return eris.Wrap(err, "export: parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, e := range entities {
		row, err := parquetRow(e)
		if err != nil {
			_ = pw.WriteStop()
			return err
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return eris.Wrap(err, "export: write parquet row")
		}
	}
	if err := pw.WriteStop(); err != nil {
		return eris.Wrap(err, "export: finish parquet file")
	}
	return nil
}
