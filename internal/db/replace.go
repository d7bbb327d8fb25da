package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// ReplaceTable deletes every row of table inside tx and copies rows in its
// place. Readers outside the transaction see either the old or the new
// contents, never a mix.
func ReplaceTable(ctx context.Context, tx pgx.Tx, table string, columns []string, rows [][]any) (deleted, inserted int64, err error) {
	tag, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", sanitizeTable(table)))
	if err != nil {
		return 0, 0, eris.Wrapf(err, "db: clear %s", table)
	}
	n, err := CopyInto(ctx, tx, table, columns, rows, 0)
	if err != nil {
		return tag.RowsAffected(), n, err
	}
	return tag.RowsAffected(), n, nil
}
