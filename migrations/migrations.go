// Package migrations embeds the SQL migration files so the server binary
// can bring its schema up to date without a separate migration artifact.
package migrations

import "embed"

// FS holds the embedded goose migration files.
//
//go:embed *.sql
var FS embed.FS
