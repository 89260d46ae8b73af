// Package migrations embeds the SQL migration files applied by goose
// at server startup.
package migrations

import "embed"

// Migrations holds the embedded *.sql migration files.
//
//go:embed *.sql
var Migrations embed.FS
