// Package cli contains the command line interface for curly.
//
// # Usage
//
//	curly [flags] [<template>]             render (default command)
//	curly check <template> <expected>      render and diff against a file
//	curly ast [-F text|json|yaml] <tpl>    print the parsed tree
//	curly funcs [<pattern>]                list callable functions
//	curly init [--force]                   write the configuration file
//	curly repl                             render interactively
//
// A template argument is a file path, a name resolved below --dir with
// --ext appended, or "-" for stdin.
//
// # Data
//
// Data files are given with --data (repeatable) and decoded by extension:
// .yaml/.yml, .json, or .toml. Later files are merged over earlier ones, and
// --set path=value assignments are applied last:
//
//	curly -d site.yaml -d local.toml --set user.name=Ann page
//
// # Configuration
//
// Flag defaults are read from config.yaml (and config.json) in the user
// configuration directory for curly, for example ~/.config/curly/config.yaml.
// Keys are flag names; see [resolve]. "curly init" writes the current values.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (text, json)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Style log output for a terminal
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o curly .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default: ~/.cache/curly/pprof)
package cli
