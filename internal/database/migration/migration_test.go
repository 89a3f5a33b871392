package migration

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioadmin/internal/logging"
)

func newLogger() (*logging.SlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.NewJSON(&buf, time.UTC, slog.LevelInfo), &buf
}

func TestEnsureMigrated_Postgres(t *testing.T) {
	ctx := context.Background()

	t.Run("runs all steps when schema is missing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(postgresSentinel)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS records").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_records_collection").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("pg_notify('record_changes'")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DROP TRIGGER IF EXISTS records_notify").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TRIGGER records_notify").WillReturnResult(sqlmock.NewResult(0, 0))

		log, buf := newLogger()
		err = EnsureMigrated(ctx, db, Postgres, "record_changes", log)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Contains(t, buf.String(), "db_migration_success")
	})

	t.Run("existing schema only refreshes the notify trigger", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(postgresSentinel)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectExec(regexp.QuoteMeta("pg_notify('admin_changes'")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DROP TRIGGER IF EXISTS records_notify").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TRIGGER records_notify").WillReturnResult(sqlmock.NewResult(0, 0))

		log, buf := newLogger()
		err = EnsureMigrated(ctx, db, Postgres, "admin_changes", log)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Contains(t, buf.String(), "db_migration_skip")
		assert.Contains(t, buf.String(), `"refreshed_steps":3`)
	})

	t.Run("refresh failure on existing schema is reported", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(postgresSentinel)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectExec("notify_record_change").WillReturnError(errors.New("permission denied"))

		log, _ := newLogger()
		err = EnsureMigrated(ctx, db, Postgres, "record_changes", log)

		assert.ErrorContains(t, err, "migration step create_function_notify_record_change failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("step failure is reported", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(postgresSentinel)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS records").WillReturnError(errors.New("permission denied"))

		log, buf := newLogger()
		err = EnsureMigrated(ctx, db, Postgres, "record_changes", log)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "migration step create_table_records failed")
		assert.Contains(t, buf.String(), `"level":"ERROR"`)
	})

	t.Run("sentinel failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(postgresSentinel)).WillReturnError(errors.New("conn reset"))

		log, _ := newLogger()
		err = EnsureMigrated(ctx, db, Postgres, "record_changes", log)
		assert.ErrorContains(t, err, "failed to check sentinel table")
	})

	t.Run("rejects unsafe channel names", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		log, _ := newLogger()
		err = EnsureMigrated(ctx, db, Postgres, "x'); DROP TABLE records; --", log)
		assert.ErrorContains(t, err, "invalid notify channel")
	})
}

func TestEnsureMigrated_SQLite(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(sqliteSentinel)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS records").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_records_collection").WillReturnResult(sqlmock.NewResult(0, 0))

	log, _ := newLogger()
	assert.NoError(t, EnsureMigrated(context.Background(), db, SQLite, "", log))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_SQLiteExistingSchemaRunsNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(sqliteSentinel)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	log, _ := newLogger()
	assert.NoError(t, EnsureMigrated(context.Background(), db, SQLite, "", log))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_UnknownDialect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log, _ := newLogger()
	assert.Error(t, EnsureMigrated(context.Background(), db, Dialect("oracle"), "", log))
}
