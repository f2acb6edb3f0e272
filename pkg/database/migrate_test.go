package database

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func migrationFS() fstest.MapFS {
	return fstest.MapFS{
		"002_order_items.up.sql":    {Data: []byte("CREATE TABLE order_items (id INT)")},
		"001_orders.up.sql":         {Data: []byte("CREATE TABLE orders (id INT)")},
		"001_orders.down.sql":       {Data: []byte("DROP TABLE orders")},
		"README.md":                 {Data: []byte("notes")},
		"nested/003_ignored.up.sql": {Data: []byte("SELECT 1")},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMigrationFiles_SortedUpOnly(t *testing.T) {
	names, err := MigrationFiles(migrationFS())
	require.NoError(t, err)
	assert.Equal(t, []string{"001_orders.up.sql", "002_order_items.up.sql"}, names)
}

func TestRunMigrations_AppliesPending(t *testing.T) {
	mock := NewMockPool(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	mock.ExpectQuery("SELECT EXISTS").WithArgs("001_orders.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery("SELECT EXISTS").WithArgs("002_order_items.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE order_items").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_order_items.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := RunMigrations(context.Background(), mock, migrationFS(), quietLogger())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SQLErrorRollsBack(t *testing.T) {
	mock := NewMockPool(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("001_orders.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE orders").WillReturnError(errStr("syntax error at or near \"TABLE\""))
	mock.ExpectRollback()

	err := RunMigrations(context.Background(), mock, migrationFS(), quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 001_orders.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_CanceledDuringRetry(t *testing.T) {
	mock := NewMockPool(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnError(errStr("dial tcp 127.0.0.1:5432: connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunMigrations(ctx, mock, migrationFS(), quietLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
