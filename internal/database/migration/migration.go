package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_viewing_sessions",
		SQL: `CREATE TABLE IF NOT EXISTS viewing_sessions (
  id           TEXT        PRIMARY KEY,
  display_name TEXT        NOT NULL,
  state        TEXT        NOT NULL CHECK (state IN ('created', 'uploading', 'completed', 'upload_failed')),
  error        TEXT        NOT NULL DEFAULT '',
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_viewing_sessions_state",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_viewing_sessions_state ON viewing_sessions (state);`,
	},
	{
		Name: "create_index_viewing_sessions_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_viewing_sessions_created_at ON viewing_sessions (created_at);`,
	},
}

// EnsureMigrated checks if the 'viewing_sessions' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log zerolog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With().Str("component", "database").Str("db_host", dbHost).Logger()

	log.Info().Str("event", "db_migration_check").Msg("checking schema")

	var exists bool
	query := "SELECT to_regclass('public.viewing_sessions') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error().Err(err).
			Str("event", "db_migration_failed").
			Dur("duration", time.Since(start)).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Dur("duration", time.Since(start)).
			Msg("schema already exists, skipping migration")
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().Err(err).
				Str("event", "db_migration_failed").
				Str("migration_step", step.Name).
				Dur("step_duration", time.Since(stepStart)).
				Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info().
			Str("event", "db_migration_step").
			Str("migration_step", step.Name).
			Dur("step_duration", time.Since(stepStart)).
			Msg("migration step applied")
	}

	log.Info().
		Str("event", "db_migration_success").
		Dur("duration", time.Since(start)).
		Msg("schema migrated")
	return nil
}
