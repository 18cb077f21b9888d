// Package migrations embeds the SQL scripts that bootstrap the ledger schema.
package migrations

import "embed"

//go:embed *.sql
var MigrationFiles embed.FS
