package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// writeOutput writes s to path, or to the context's output stream for "-".
func writeOutput(ctx context.Context, path, s string) error {
	var w io.Writer

	if path == "" || path == stdinSource {
		_, w = stdioFrom(ctx)
	} else {
		f, err := os.Create(path)
		if err != nil {
			return ErrWriteOutput.Wrap(err).With(slog.String("path", path))
		}
		defer f.Close()

		w = f
	}

	if _, err := io.WriteString(w, s); err != nil {
		return ErrWriteOutput.Wrap(err).With(slog.String("path", path))
	}

	return nil
}
