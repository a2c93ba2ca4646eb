// Package migrations embeds the replay database schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
