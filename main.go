package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Azure/coverlens/pkg/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	command := cmd.NewCoverLensCommand(version, commit, date)
	if err := command.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		var e *cmd.CoverLensError
		if errors.As(err, &e) {
			os.Exit(e.ExitCode)
		}
		os.Exit(cmd.GeneralErrorExitCode)
	}
}
