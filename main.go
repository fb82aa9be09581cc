package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var (
	// Build info embedded by goreleaser.
	version = "master" //nolint:gochecknoglobals
	commit  = "latest" //nolint:gochecknoglobals
	date    = "n/a"    //nolint:gochecknoglobals
	builtBy = "src"    //nolint:gochecknoglobals
)

func run() int {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errExec := newRootCommand().ExecuteContext(rootCtx); errExec != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", errExec)

		return 1
	}

	return 0
}

func main() {
	os.Exit(run())
}
