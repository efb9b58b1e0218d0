package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"plarchive/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			if kind := services.KindOf(err); kind != services.KindUnknown {
				fmt.Fprintf(os.Stderr, "hint: %s\n", services.Hint(err))
			}
		}
		stop()
		os.Exit(1)
	}
}
