package cmd

import (
	"context"
	"strings"

	"github.com/ardnew/curly/tmpl"
)

// AST prints the parsed node tree of a template.
type AST struct {
	Template string `arg:"" default:"-"    help:"Template file, template name, or '-' for stdin." name:"template"`
	Format   string `       default:"text" enum:"text,json,yaml"                                  help:"Output format." short:"F"`
	Indent   int    `       default:"2"    help:"Indent width."                                   short:"i"`
}

// Run executes the ast command.
func (a *AST) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	e, err := newEngine(ctx)
	if err != nil {
		return err
	}

	t, err := loadTemplate(ctx, e, a.Template)
	if err != nil {
		return err
	}

	var b strings.Builder

	if err := formatTemplate(ctx, &b, t, a.Format, a.Indent); err != nil {
		return err
	}

	return writeOutput(ctx, stdinSource, b.String())
}

func formatTemplate(
	ctx context.Context,
	b *strings.Builder,
	t *tmpl.Template,
	format string,
	indent int,
) error {
	switch format {
	case "json":
		return t.FormatJSON(ctx, b, indent)

	case "yaml":
		return t.FormatYAML(ctx, b, indent)

	default:
		return t.Format(ctx, b, indent)
	}
}
