// Package cmd implements the curly subcommands: render, check, ast, funcs,
// init, and repl.
//
// Commands receive their shared configuration through the context set up by
// the cli package: the kong context ([WithContext]), the engine and data
// flags ([WithEngineFlags], [WithDataFlags]), and optionally replacement
// standard streams ([WithStdio]).
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the YAML configuration file.
	ConfigIdentifier = "config"
)
