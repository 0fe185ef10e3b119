package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementsSplitSchema(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 10)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS roles")
	for _, s := range stmts {
		assert.NotContains(t, s, "--")
		assert.NotContains(t, s, ";")
	}
}

func TestEnsureSchemaRunsEveryStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, s := range Statements() {
		mock.ExpectExec(regexp.QuoteMeta(s)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, EnsureSchema(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS roles").WillReturnError(errors.New("denied"))
	err = EnsureSchema(context.Background(), db)
	assert.ErrorContains(t, err, "schema statement 1")
	require.NoError(t, mock.ExpectationsWereMet())
}
