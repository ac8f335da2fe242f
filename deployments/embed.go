// Package deployments embeds deployment assets into the binary.
package deployments

import (
	_ "embed"
)

// SchemaSQL is the full PostgreSQL schema for a fresh install.
//
//go:embed schema.sql
var SchemaSQL string
