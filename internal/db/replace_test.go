package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx_ReplaceTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "catalogue"."service_entities"`).WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectCopyFrom(pgx.Identifier{"catalogue", "service_entities"}, []string{"id", "name"}).WillReturnResult(2)
	mock.ExpectCommit()

	var deleted, inserted int64
	err = WithTx(context.Background(), mock, func(tx pgx.Tx) error {
		var err error
		deleted, inserted, err = ReplaceTable(context.Background(), tx, "catalogue.service_entities",
			[]string{"id", "name"}, [][]any{{"e1", "A"}, {"e2", "B"}})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.Equal(t, int64(2), inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM`).WillReturnError(errors.New("relation does not exist"))
	mock.ExpectRollback()

	err = WithTx(context.Background(), mock, func(tx pgx.Tx) error {
		_, _, err := ReplaceTable(context.Background(), tx, "catalogue.service_entities", []string{"id"}, [][]any{{"e1"}})
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear catalogue.service_entities")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	called := false
	err = WithTx(context.Background(), mock, func(pgx.Tx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}
