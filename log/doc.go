// Package log provides a concurrency-safe simplified logging interface
// based on [log/slog], with a trace level below debug.
//
// # Basic Usage
//
//	logger := log.Make(os.Stderr)
//	logger.Info("rendered", slog.String("template", "index.tpl"))
//
// # Configuration
//
// Configuration is fixed when a logger is made, using functional options:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelTrace),
//		log.WithFormat(log.FormatJSON),
//		log.WithTimeLayout("RFC3339Nano"),
//		log.WithCaller(true))
//
// [Logger.Wrap] derives a logger with some options overridden, and
// [Logger.With] one that adds attributes to every record.
//
// # Context-Aware Logging
//
// Each level has a context-aware and a context-unaware method. The latter
// use [DefaultContextProvider], which returns [context.TODO] by default.
//
// # Package Logger
//
// The package-level functions log through a default logger writing to
// standard error. [Config] reconfigures it and [SetDefault] replaces it.
//
// # Output Formats
//
// [FormatText] (default) and [FormatJSON] are supported. With
// [WithPretty], records are styled for a terminal; styling is dropped when
// the output is not one.
package log
