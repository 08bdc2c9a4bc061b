// Package main is the stork command.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rshade/stork/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev" //nolint:gochecknoglobals // set by the linker

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	root := cli.NewRootCmd(version)
	root.SetArgs(args)
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}
