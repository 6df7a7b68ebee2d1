// Command meshctl is an operator CLI for talking to a running cmd/meshnode
// over its diagnostic HTTP endpoint, structured the way
// telemetry/internal/data/cli's cobra root command is: a root command with
// persistent flags, one subcommand per file.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(int(run()))
}

type exitCode int

const (
	exitSuccess exitCode = 0
	exitError   exitCode = 1
)

func run() exitCode {
	root := &cobra.Command{
		Use:   "meshctl",
		Short: "Operator CLI for a running meshnode process",
	}
	root.PersistentFlags().String("addr", "http://127.0.0.1:2112", "meshnode diagnostic HTTP address")

	root.AddCommand(
		newStatusCmd(),
		newResyncCmd(),
		newSendTestFrameCmd(),
	)

	if err := root.Execute(); err != nil {
		return exitError
	}
	return exitSuccess
}
