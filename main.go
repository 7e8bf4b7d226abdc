// Command curly renders brace-tag templates.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/ardnew/curly/cli"
	"github.com/ardnew/curly/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Run(ctx, os.Exit, os.Args[1:]...); err != nil {
		log.ErrorContext(ctx, "curly failed", slog.Any("error", err))

		return 1
	}

	return 0
}
