// Package migrations embeds the PostgreSQL schema migrations.
package migrations

import "embed"

// FS contains the schema migrations applied by store.Migrator.
//
//go:embed sql/*.sql
var FS embed.FS

// Dir is the directory within FS where migrations live.
const Dir = "sql"
