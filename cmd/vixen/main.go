// Package main is the entry point for the vixen CLI.
//
// vixen can be used as a library (SDK) or as a standalone binary. The binary
// runs a JSONP relay endpoint, polls JSONP locations and sends one-off
// signals.
//
// Usage:
//
//	vixen serve -c config.yaml              # Start the relay (and configured pollers)
//	vixen poll -c config.yaml               # Run the configured pollers, print deliveries
//	vixen signal <location> <data>          # Send one signal
//	vixen validate -c config.yaml           # Validate configuration
//	vixen version                           # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "vixen",
	Short: "JSONP long-polling and signalling",
	Long: `vixen emulates long-polling over JSONP and sends one-way signals.

A poller requests <location>?jsonp=Vixen.callbacks.<id> on an interval and
receives the arguments the returned script passes to that callback. A signal
requests <location>?jsonp=<data> once and ignores the response.

Quick start:
  1. Run the relay: vixen serve
  2. Signal it:     vixen signal http://localhost:8080/signal/chat hello
  3. Poll it:       vixen poll -c vixen.yaml
  4. Open http://localhost:8080 in your browser

Example config:
  server:
    port: 8080
  pollers:
    - location: http://localhost:8080/poll/chat
      interval: 2s`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this vixen binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "vixen %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
