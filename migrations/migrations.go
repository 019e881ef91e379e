// Package migrations embeds the SQL schema and seed files applied by
// internal/migrate.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
