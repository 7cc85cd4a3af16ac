// Package main provides the entry point for the jex CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmmirabile/Jex/internal/adapters/filesystem"
	"github.com/jmmirabile/Jex/internal/app"
	"github.com/jmmirabile/Jex/internal/domain/config"
	"github.com/jmmirabile/Jex/internal/domain/plugin"
)

// Version information set by build flags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	paths, err := config.ResolvePaths(config.OSEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}

	d := app.New(app.Config{
		Paths:    paths,
		IO:       plugin.StdIO(),
		FS:       filesystem.NewRealFileSystem(),
		Build:    app.BuildInfo{Version: version, Commit: commit, Date: date},
		LogLevel: os.Getenv(config.EnvLogLevel),
	})
	return d.Run(context.Background(), args)
}
