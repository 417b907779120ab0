package db

import "embed"

// MigrationFS embeds the per-dialect SQL migration files from
// internal/db/migrations. Used by the migrate runner (cmd/migrate and server
// startup for sqlite) to apply migrations.
//
//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var MigrationFS embed.FS
