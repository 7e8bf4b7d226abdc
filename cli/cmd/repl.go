package cmd

import (
	"context"
	"os"

	"github.com/ardnew/curly/cli/cmd/repl"
	"github.com/ardnew/curly/log"
)

// Repl starts an interactive session rendering one-line templates against
// the selected data.
type Repl struct{}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	e, err := newEngine(ctx)
	if err != nil {
		return err
	}

	data, err := loadData(ctx)
	if err != nil {
		return err
	}

	cacheDir, ok := kongVar(ctx, CacheIdentifier)
	if !ok {
		cacheDir = os.TempDir()
	}

	return repl.Run(ctx, e, data, cacheDir, log.Default())
}
