package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tablevox/prefsel/cmd"
	"github.com/tablevox/prefsel/internal/conf"
	"github.com/tablevox/prefsel/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level)

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
