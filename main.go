// filesh serves a shared directory tree to line-oriented clients.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"filesh/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "filesh: %v\n", err)
		os.Exit(1)
	}
}
