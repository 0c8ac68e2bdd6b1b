// Cerebro gateway daemon. Bridges a desktop assistant UI to the local
// machine: contained file access, allow-listed process execution, host
// telemetry, and an append-only usage metrics log.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cerebrod",
	Short: "Cerebro gateway — contained file and command execution for the Cerebro assistant.",
	Long: `cerebrod is the local gateway behind the Cerebro desktop assistant.
It confines all file operations to a safe orbit directory, runs only
allow-listed commands, and records usage metrics to an append-only log.
It serves the same operations over HTTP and as an MCP stdio server.`,
	RunE:          runServe, // Default to HTTP gateway mode.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, mcpCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
