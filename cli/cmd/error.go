package cmd

import "github.com/ardnew/curly/tmpl"

// Error is the structured error type shared with the template engine, so a
// command failure and a render failure log the same way.
type Error = tmpl.Error

// Command errors. Like the engine's sentinels, they match with [errors.Is]
// after attributes or a cause are attached.
var (
	ErrReadTemplate  = tmpl.NewError("read template")
	ErrStdinConflict = tmpl.NewError("template and data cannot both be read from stdin")
	ErrWriteOutput   = tmpl.NewError("write output")
	ErrMismatch      = tmpl.NewError("rendered output differs from expected")
	ErrYAMLMarshal   = tmpl.NewError("marshal YAML")
	ErrWriteConfig   = tmpl.NewError("write configuration file")
	ErrFileExists    = tmpl.NewError("file exists (use --force to overwrite)")
)
