// Package migrations embeds the goose SQL files so the binary can migrate without a checkout.
package migrations

import "embed"

// Dir is the directory inside FS that goose reads.
const Dir = "goose_sql"

//go:embed goose_sql/*.sql
var FS embed.FS
