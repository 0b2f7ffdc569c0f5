package migrations

import "embed"

// FS contains embedded SQLite migrations for summary storage.
//
//go:embed *.sql
var FS embed.FS
