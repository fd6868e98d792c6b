// Package migrations embeds the SQLite schema of the ledger store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
