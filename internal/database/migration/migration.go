package migration

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"portfolioadmin/internal/logging"
)

// Dialect selects the schema flavour.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

type migrationStep struct {
	Name string
	SQL  string
	// Always steps are idempotent and rerun on every start, so a changed
	// notify channel reaches an existing schema.
	Always bool
}

var channelPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

func postgresSteps(channel string) []migrationStep {
	return []migrationStep{
		{
			Name: "create_table_records",
			SQL: `CREATE TABLE IF NOT EXISTS records (
  seq        BIGSERIAL   PRIMARY KEY,
  collection TEXT        NOT NULL,
  id         TEXT        NOT NULL,
  fields     JSONB       NOT NULL DEFAULT '{}'::jsonb,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (collection, id)
);`,
		},
		{
			Name: "create_index_records_collection",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_records_collection ON records (collection, seq);`,
		},
		{
			Name: "create_function_notify_record_change",
			SQL: fmt.Sprintf(`CREATE OR REPLACE FUNCTION notify_record_change() RETURNS trigger AS $$
BEGIN
  PERFORM pg_notify('%s', COALESCE(NEW.collection, OLD.collection));
  RETURN NULL;
END;
$$ LANGUAGE plpgsql;`, channel),
			Always: true,
		},
		{
			Name:   "drop_trigger_records_notify",
			SQL:    `DROP TRIGGER IF EXISTS records_notify ON records;`,
			Always: true,
		},
		{
			Name: "create_trigger_records_notify",
			SQL: `CREATE TRIGGER records_notify
AFTER INSERT OR UPDATE OR DELETE ON records
FOR EACH ROW EXECUTE FUNCTION notify_record_change();`,
			Always: true,
		},
	}
}

var sqliteSteps = []migrationStep{
	{
		Name: "create_table_records",
		SQL: `CREATE TABLE IF NOT EXISTS records (
  seq        INTEGER PRIMARY KEY AUTOINCREMENT,
  collection TEXT    NOT NULL,
  id         TEXT    NOT NULL,
  fields     TEXT    NOT NULL DEFAULT '{}',
  updated_at TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (collection, id)
);`,
	},
	{
		Name: "create_index_records_collection",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_records_collection ON records (collection, seq);`,
	},
}

const (
	postgresSentinel = "SELECT to_regclass('public.records') IS NOT NULL"
	sqliteSentinel   = "SELECT COUNT(*) > 0 FROM sqlite_master WHERE type = 'table' AND name = 'records'"
)

// EnsureMigrated checks if the 'records' table exists and runs migrations if it doesn't.
// Steps marked Always run either way.
// channel is the NOTIFY channel used by the postgres change trigger; it is ignored for SQLite.
func EnsureMigrated(ctx context.Context, db *sql.DB, dialect Dialect, channel string, log logging.Logger) error {
	start := time.Now()
	log = log.With("component", "database", "dialect", string(dialect))

	var (
		steps    []migrationStep
		sentinel string
	)
	switch dialect {
	case Postgres:
		if !channelPattern.MatchString(channel) {
			return fmt.Errorf("invalid notify channel %q", channel)
		}
		steps, sentinel = postgresSteps(channel), postgresSentinel
	case SQLite:
		steps, sentinel = sqliteSteps, sqliteSentinel
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}

	log.Info(ctx, "db_migration_check", "status", "starting")

	var exists bool
	if err := db.QueryRowContext(ctx, sentinel).Scan(&exists); err != nil {
		log.Error(ctx, "db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		var refresh []migrationStep
		for _, step := range steps {
			if step.Always {
				refresh = append(refresh, step)
			}
		}
		if err := runSteps(ctx, db, refresh, log, start); err != nil {
			return err
		}
		log.Info(ctx, "db_migration_skip",
			"status", "success",
			"detail", "schema already exists, skipping migration",
			"refreshed_steps", len(refresh),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info(ctx, "db_migration_start", "status", "in_progress")

	if err := runSteps(ctx, db, steps, log, start); err != nil {
		return err
	}

	log.Info(ctx, "db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

func runSteps(ctx context.Context, db *sql.DB, steps []migrationStep, log logging.Logger, start time.Time) error {
	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error(ctx, "db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info(ctx, "db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}
	return nil
}
