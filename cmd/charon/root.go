package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"styx-hq/charon/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "charon",
	Short: "Charon - local relay for OpenAI-compatible chat APIs",
	Long: `Charon is a local relay daemon that forwards chat requests from local
clients to caller-chosen OpenAI-compatible endpoints.

It terminates client requests on a loopback address and provides:
  - Buffered and SSE-streaming chat relay with a closed error vocabulary
  - Model listing and connection testing for candidate suppliers
  - A named supplier registry with hot reload
  - Remote card import staging
  - A privacy-preserving audit trail (byte counts and hashes, never bodies)

For more information, visit: https://github.com/styx-hq/charon`,
	Version: Version,
}

// Execute runs the root command and exits with the code the error maps
// to: 2 for configuration failures, 1 for everything else.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "charon.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
