package main

import (
	"os"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/ruben-marchisio/Cerebro/internal/config"
	"github.com/ruben-marchisio/Cerebro/internal/gateway/mcpserver"
)

var mcpConfigPath string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the gateway as an MCP server on stdio",
	RunE:  runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpConfigPath, "config", config.DefaultConfigPath(), "path to config file")
}

func runMCP(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(goutils.Env("CEREBRO_CONFIG", mcpConfigPath))
	if err != nil {
		return err
	}

	// stdout carries the MCP protocol; logs go to stderr.
	sc, err := initShared(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	srv := mcpserver.New(sc.Workspace, sc.Files, sc.Sandbox, sc.Usage, sc.AppCtl, sc.Logger)
	return srv.ServeStdio()
}
