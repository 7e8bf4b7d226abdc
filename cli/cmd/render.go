package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/curly/log"
)

// Render renders a template against the selected data.
type Render struct {
	Template string `arg:"" default:"-" help:"Template file, template name, or '-' for stdin." name:"template"`
	Output   string `       default:"-" help:"Output file or '-' for stdout."                  short:"o"     type:"path"`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	out, err := renderTemplate(ctx, r.Template)
	if err != nil {
		return err
	}

	log.DebugContext(ctx, "rendered",
		slog.String("template", r.Template),
		slog.Int("bytes", len(out)),
	)

	return writeOutput(ctx, r.Output, out)
}
