// Package migrations embeds the ticket journal schema for each supported driver.
package migrations

import "embed"

// FS holds <driver>/<version>_<name>.<up|down>.sql files.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
