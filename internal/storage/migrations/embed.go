// Package migrations embeds the SQL schema migrations for the favorites store.
package migrations

import "embed"

// Files contains the embedded *.sql migrations, named for golang-migrate.
//
//go:embed *.sql
var Files embed.FS
