package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// DefaultBatchSize is the number of rows sent per COPY statement.
const DefaultBatchSize = 5000

// CopyInto bulk-inserts rows into a possibly schema-qualified table
// ("catalogue.service_entities") using the COPY protocol, batchSize rows at
// a time (0 = DefaultBatchSize). It returns the number of rows copied.
func CopyInto(ctx context.Context, c Copier, table string, columns []string, rows [][]any, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, eris.Errorf("db: COPY INTO %s: no columns specified", table)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	ident := identifier(table)
	var total int64
	for i := 0; i < len(rows); i += batchSize {
		end := min(i+batchSize, len(rows))
		n, err := c.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows[i:end]))
		if err != nil {
			return total, eris.Wrapf(err, "db: COPY INTO %s (rows %d-%d)", table, i, end)
		}
		total += n
	}
	return total, nil
}

// InsertSQL builds a parameterized INSERT for table and columns. When
// conflictKey is set, rows with an existing key are updated in place.
func InsertSQL(table string, columns []string, conflictKey string) string {
	params := make([]string, len(columns))
	for i := range columns {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sanitizeTable(table), quoteAndJoin(columns), strings.Join(params, ", "))
	if conflictKey == "" {
		return sql
	}

	var sets []string
	for _, c := range columns {
		if c == conflictKey {
			continue
		}
		q := pgx.Identifier{c}.Sanitize()
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s",
		sql, pgx.Identifier{conflictKey}.Sanitize(), strings.Join(sets, ", "))
}

// identifier splits a schema-qualified name into a pgx.Identifier.
func identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.SplitN(table, ".", 2))
}

// sanitizeTable quotes a possibly schema-qualified table name.
func sanitizeTable(table string) string {
	return identifier(table).Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
