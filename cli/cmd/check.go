package cmd

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/k14s/difflib"

	"github.com/ardnew/curly/log"
)

// Check renders a template and compares the result with an expected file.
type Check struct {
	Template string `arg:"" help:"Template file, template name, or '-' for stdin." name:"template"`
	Expected string `arg:"" help:"File holding the expected output."                name:"expected" type:"existingfile"`
}

// Run executes the check command. A mismatch prints a line diff and returns
// ErrMismatch.
func (c *Check) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	want, err := os.ReadFile(c.Expected)
	if err != nil {
		return ErrReadTemplate.Wrap(err).With(slog.String("expected", c.Expected))
	}

	got, err := renderTemplate(ctx, c.Template)
	if err != nil {
		return err
	}

	if got == string(want) {
		log.DebugContext(ctx, "check passed",
			slog.String("template", c.Template),
			slog.String("expected", c.Expected),
		)

		return nil
	}

	diff := difflib.PPDiff(
		strings.Split(string(want), "\n"),
		strings.Split(got, "\n"),
	)

	if err := writeOutput(ctx, stdinSource, diff); err != nil {
		return err
	}

	return ErrMismatch.With(
		slog.String("template", c.Template),
		slog.String("expected", c.Expected),
	)
}
