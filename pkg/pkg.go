// Package pkg holds the identity of the curly module.
package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the module's semantic version, read from the VERSION file at
// build time.
var Version = strings.TrimSpace(version) //nolint:gochecknoglobals

const (
	// Name names the command, its help output, and its config and cache
	// directories.
	Name = "curly"

	// Description summarizes the command in help output.
	Description = "Brace-tag text template renderer"
)
