// ABOUTME: init and token subcommands
// ABOUTME: init writes a starter config with a random JWT secret; token mints bearer tokens

package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/nutrition-gateway/internal/auth"
	"github.com/2389/nutrition-gateway/internal/config"
)

// defaultDBPath returns $XDG_DATA_HOME/nutrition/nutrition.db, falling back
// to ~/.local/share.
func defaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "nutrition.db"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "nutrition", "nutrition.db")
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func newInitCmd(opts *rootOptions) *cobra.Command {
	var (
		dbPath string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file with a random JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if config.Exists(opts.configPath) && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", opts.configPath)
			}

			secret, err := generateSecret()
			if err != nil {
				return err
			}
			content := config.Template(secret, dbPath)
			if _, err := config.Parse([]byte(content)); err != nil {
				return fmt.Errorf("generated config is invalid: %w", err)
			}

			if err := os.MkdirAll(filepath.Dir(opts.configPath), 0o755); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := os.WriteFile(opts.configPath, []byte(content), 0o600); err != nil {
				return fmt.Errorf("writing config file: %w", err)
			}

			out := cmd.OutOrStdout()
			color.New(color.FgGreen).Fprintf(out, "  ✓ Created config: %s\n", opts.configPath)
			fmt.Fprintf(out, "    Database: %s\n\n", dbPath)
			color.New(color.FgYellow).Fprintln(out, "  Next steps:")
			fmt.Fprintln(out, "    nutrition-gateway token --subject you   # mint a bearer token")
			fmt.Fprintln(out, "    nutrition-gateway serve                 # start the gateway")
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultDBPath(), "SQLite database path")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		subject string
		scopes  []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a subject",
		Long: `Mint an HS256 bearer token signed with the configured JWT secret.

The token carries the configured issuer and audience, so it is accepted by a
gateway started from the same config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if subject == "" {
				return errors.New("--subject is required")
			}
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			var vopts []auth.VerifierOption
			if cfg.Auth.Issuer != "" {
				vopts = append(vopts, auth.WithIssuer(cfg.Auth.Issuer))
			}
			if cfg.Auth.Audience != "" {
				vopts = append(vopts, auth.WithAudience(cfg.Auth.Audience))
			}
			verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret), vopts...)
			if err != nil {
				return fmt.Errorf("creating JWT verifier: %w", err)
			}

			token, err := verifier.Generate(subject, scopes, ttl)
			if err != nil {
				return fmt.Errorf("generating token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Subject (user id) the token identifies")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Scope to grant (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "Token lifetime")
	return cmd
}
