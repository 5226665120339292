package migrations

import "embed"

// Postgres holds the schema migrations applied by migrate.ApplyPostgres.
//
//go:embed postgres/*.sql
var Postgres embed.FS
