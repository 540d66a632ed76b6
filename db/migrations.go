// Package db embeds the SQL migrations so binaries can apply them without a
// checkout of the repository.
package db

import "embed"

// Migrations holds the numbered golang-migrate files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
