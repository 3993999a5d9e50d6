// Package migrations embeds the SQL schema migrations for the Flostat core.
//
// Importing this package (for side effects) registers the embedded migration
// files with the database package:
//
//	import _ "github.com/syedsohail-123/flostat-dashbaord-sub001/migrations"
//
// Migration files follow the naming convention:
//
//	YYYYMMDD_HHMMSS_description.up.sql
//	YYYYMMDD_HHMMSS_description.down.sql
package migrations

import (
	"embed"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
