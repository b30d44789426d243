package migrations

import "embed"

// FS contains embedded SQLite migrations for session resume storage.
//
//go:embed *.sql
var FS embed.FS
