// Package migrations embeds the honeychecker schema. The same files apply
// to SQLite and PostgreSQL.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
