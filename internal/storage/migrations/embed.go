// Package migrations embeds the schema for each SQL backend.
package migrations

import "embed"

// SQLite holds the migrations applied by storage/sqlite.
//
//go:embed sqlite/*.sql
var SQLite embed.FS

// Postgres holds the goose migrations applied by storage/postgres.
//
//go:embed postgres/*.sql
var Postgres embed.FS
