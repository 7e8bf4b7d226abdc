package cmd

import (
	"context"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/curly/tmpl"
)

var (
	usageStyle = lipgloss.NewStyle().Bold(true)
	docStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	safeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Funcs lists the functions templates may call.
type Funcs struct {
	Pattern string `arg:"" help:"Fuzzy filter on function names." name:"pattern" optional:""`
}

// Run executes the funcs command.
func (f *Funcs) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	e, err := newEngine(ctx)
	if err != nil {
		return err
	}

	return writeOutput(ctx, stdinSource, listFuncs(e.Functions(), f.Pattern))
}

// listFuncs renders one aligned line per function, in name order or, with
// a pattern, in fuzzy match order.
func listFuncs(r *tmpl.Registry, pattern string) string {
	names := r.Names()

	if pattern != "" {
		matches := fuzzy.Find(pattern, names)

		names = make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Str
		}
	}

	fns := make([]tmpl.Func, 0, len(names))
	width := 0

	for _, name := range names {
		fn, ok := r.Lookup(name)
		if !ok {
			continue
		}

		fns = append(fns, fn)
		width = max(width, lipgloss.Width(usage(fn)))
	}

	var b strings.Builder

	for _, fn := range fns {
		u := usage(fn)

		b.WriteString(usageStyle.Render(u))
		b.WriteString(strings.Repeat(" ", width-lipgloss.Width(u)+2))
		b.WriteString(docStyle.Render(fn.Doc))

		if fn.Safe {
			b.WriteString(" " + safeStyle.Render("(unescaped)"))
		}

		b.WriteByte('\n')
	}

	return b.String()
}

func usage(fn tmpl.Func) string {
	if fn.Usage != "" {
		return fn.Usage
	}

	return fn.Name + "(…)"
}
