// ABOUTME: serve and health subcommands
// ABOUTME: serve runs the gateway until SIGINT/SIGTERM; health probes a running instance

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/nutrition-gateway/internal/config"
	"github.com/2389/nutrition-gateway/internal/gateway"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			printBanner(cmd.OutOrStdout(), opts.configPath, cfg)

			logger := setupLogger(cfg.Logging, os.Stdout)
			logger.Info("starting nutrition-gateway",
				"version", version,
				"config", opts.configPath,
				"http_addr", cfg.Server.HTTPAddr,
				"mcp_mode", cfg.MCP.Mode,
			)

			gw, err := gateway.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating gateway: %w", err)
			}
			return gw.Run(cmd.Context())
		},
	}
}

func printBanner(w io.Writer, configPath string, cfg *config.Config) {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(w, banner)
	gray.Fprintf(w, "    version: %s\n\n", version)

	line := func(label, value string) {
		green.Fprint(w, "    ▶ ")
		fmt.Fprintf(w, "%-10s %s\n", label+":", value)
	}
	line("Config", configPath)
	line("HTTP", cfg.Server.HTTPAddr)
	line("MCP", cfg.MCP.Path+" ("+cfg.MCP.Mode+")")
	line("Database", cfg.Database.Path)
	if !cfg.Auth.Required() {
		yellow.Fprintf(w, "    ! tokenless requests run as %q\n", cfg.Auth.DevSubject)
	}
	fmt.Fprintln(w)
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that a running gateway is ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return checkHealth(cmd, "http://"+cfg.Server.HTTPAddr)
		},
	}
}

func checkHealth(cmd *cobra.Command, baseURL string) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, baseURL+"/health/ready", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, body)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "healthy: %s\n", body)
	return nil
}
