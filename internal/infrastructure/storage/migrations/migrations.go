// Package migrations holds the goose schema migrations. SQL migrations are
// embedded; Go migrations register themselves in init.
package migrations

import "embed"

// FS contains the SQL migration files.
//
//go:embed *.sql
var FS embed.FS
