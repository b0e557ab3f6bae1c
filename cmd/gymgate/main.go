package main

import (
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/gymgate/gymgate/internal/cmd"
	"github.com/gymgate/gymgate/internal/server/handlers"
)

// Populated at build time via -ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		cmd.ExitWithCodeStderr(foundry.ExitFailure, "Command execution failed", err)
	}
}
