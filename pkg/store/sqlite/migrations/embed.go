package migrations

import "embed"

// FS contains embedded SQLite migrations for goal storage.
//
//go:embed *.sql
var FS embed.FS
