package antenna

import "embed"

// MigrationsFS holds the SQL migration files so a deployed binary does not
// depend on the migrations directory being present on disk.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
