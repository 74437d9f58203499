// ABOUTME: Entry point for the nutrition-gateway MCP server
// ABOUTME: Builds the cobra command tree for serve, init, token and health

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389/nutrition-gateway/internal/config"
)

// version is set by goreleaser at build time.
var version = "dev"

const banner = `
             _        _ _   _
 _ __  _   _| |_ _ __(_) |_(_) ___  _ __
| '_ \| | | | __| '__| | __| |/ _ \| '_ \
| | | | |_| | |_| |  | | |_| | (_) | | | |
|_| |_|\__,_|\__|_|  |_|\__|_|\___/|_| |_|
`

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "nutrition-gateway",
		Short: "MCP server for personal nutrition tracking",
		Long: `nutrition-gateway serves a food library, meal templates, a meal log and
body metrics to MCP clients over Streamable HTTP, plus a small JSON API for
dashboards.

The config file defaults to $` + config.EnvConfigPath + ` or
$XDG_CONFIG_HOME/nutrition/gateway.yaml.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath(), "Path to the config file")

	root.AddCommand(
		newServeCmd(opts),
		newInitCmd(opts),
		newTokenCmd(opts),
		newHealthCmd(opts),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
