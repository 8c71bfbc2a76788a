package database

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"

	"teamtodo/internal/config"
	"teamtodo/pkg/logger"
)

// ErrNoDatabaseURL is returned when the config carries no connection string.
var ErrNoDatabaseURL = errors.New("database: DATABASE_URL is not set")

// Open connects a Postgres pool sized from config. The caller owns the pool
// and passes it to the stores that need it.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, ErrNoDatabaseURL
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.DBPoolSize)
	db.SetMaxIdleConns(cfg.DBPoolSize / 2)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info(ctx, "Database pool initialized", "max_open", cfg.DBPoolSize)
	return db, nil
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '#808080',
			team_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS todos (
			id UUID PRIMARY KEY,
			text TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			due_date TIMESTAMPTZ,
			project_id UUID,
			team_id TEXT NOT NULL,
			assigned_user_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_team ON todos (team_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_project ON todos (team_id, project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_team ON projects (team_id)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
