// Package cli implements the linkd command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// Build-time version information, set by the main package.
var buildVersion = "dev"

// rootCmd is the base command all subcommands attach to.
var rootCmd = &cobra.Command{
	Use:   "linkd",
	Short: "Connection-acceptance and dispatch server for RPC services",
	Long: `linkd listens on a TCP endpoint, authenticates inbound peers, dispatches
each connection to an isolated session (goroutine or child process), and
advertises itself to a discovery registry.`,
	SilenceUsage: true,
}

// SetVersion records the build version shown by the version command.
func SetVersion(v string) {
	if v != "" {
		buildVersion = v
	}
}

// Execute runs the CLI and returns the command error, if any.
func Execute() error {
	return rootCmd.Execute()
}
