// Package migrations embeds the schema files for each supported store.
package migrations

import "embed"

// Postgres contains the PostgreSQL schema migrations.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite contains the SQLite schema migrations.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
