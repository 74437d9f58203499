// ABOUTME: Configuration loading and parsing for nutrition-gateway
// ABOUTME: Supports YAML files with environment variable expansion, defaults and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by the loader.
const (
	EnvConfigPath = "NUTRITION_CONFIG"
	EnvDBPath     = "NUTRITION_DB_PATH"
)

// Session handling modes for the MCP endpoint.
const (
	ModeStateful  = "stateful"
	ModeStateless = "stateless"
)

// Defaults applied to fields left empty.
const (
	DefaultHTTPAddr          = "127.0.0.1:8080"
	DefaultMCPPath           = "/api/mcp"
	DefaultPushBuffer        = 64
	DefaultKeepaliveInterval = 25 * time.Second
	DefaultToolTimeout       = 30 * time.Second
)

// Config represents the complete nutrition-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	MCP       MCPConfig       `yaml:"mcp"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds bearer token configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
	// RequireAuth defaults to true. When false, requests without a token
	// run as DevSubject.
	RequireAuth *bool  `yaml:"require_auth"`
	DevSubject  string `yaml:"dev_subject"`
}

// Required reports whether every request must carry a bearer token.
func (a AuthConfig) Required() bool {
	return a.RequireAuth == nil || *a.RequireAuth
}

// MCPConfig holds the MCP endpoint and session settings
type MCPConfig struct {
	Path       string `yaml:"path"`
	Mode       string `yaml:"mode"`
	PushBuffer int    `yaml:"push_buffer"`

	SessionIdleTimeout time.Duration `yaml:"-"`
	KeepaliveInterval  time.Duration `yaml:"-"`
	ToolTimeout        time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	SessionIdleTimeoutRaw string `yaml:"session_idle_timeout"`
	KeepaliveIntervalRaw  string `yaml:"keepalive_interval"`
	ToolTimeoutRaw        string `yaml:"tool_timeout"`
}

// DiscoveryConfig holds the OAuth discovery documents' inputs
type DiscoveryConfig struct {
	// Resource is the canonical URL of this server.
	Resource string `yaml:"resource"`
	// ProxyBaseURL is the authorization server that issues our tokens.
	ProxyBaseURL        string   `yaml:"proxy_base_url"`
	Scopes              []string `yaml:"scopes"`
	ResourceMetadataURL string   `yaml:"resource_metadata_url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultPath returns the config file location: $NUTRITION_CONFIG if set,
// otherwise nutrition/gateway.yaml under the user config directory.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "gateway.yaml"
	}
	return filepath.Join(dir, "nutrition", "gateway.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML content, applying the same expansion,
// defaults and validation as Load.
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if p := os.Getenv(EnvDBPath); p != "" {
		cfg.Database.Path = p
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.MCP.Path == "" {
		c.MCP.Path = DefaultMCPPath
	}
	if c.MCP.Mode == "" {
		c.MCP.Mode = ModeStateful
	}
	if c.MCP.PushBuffer == 0 {
		c.MCP.PushBuffer = DefaultPushBuffer
	}
	if c.MCP.KeepaliveInterval == 0 {
		c.MCP.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.MCP.ToolTimeout == 0 {
		c.MCP.ToolTimeout = DefaultToolTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if !c.Auth.Required() && c.Auth.DevSubject == "" {
		return fmt.Errorf("auth.dev_subject is required when auth.require_auth is false")
	}
	if c.MCP.Path == "" || c.MCP.Path[0] != '/' {
		return fmt.Errorf("mcp.path must start with '/'")
	}
	if c.MCP.Mode != ModeStateful && c.MCP.Mode != ModeStateless {
		return fmt.Errorf("mcp.mode must be %q or %q, got %q", ModeStateful, ModeStateless, c.MCP.Mode)
	}
	if c.MCP.PushBuffer < 0 {
		return fmt.Errorf("mcp.push_buffer must not be negative")
	}
	if c.MCP.SessionIdleTimeout < 0 {
		return fmt.Errorf("mcp.session_idle_timeout must not be negative")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"session_idle_timeout", cfg.MCP.SessionIdleTimeoutRaw, &cfg.MCP.SessionIdleTimeout},
		{"keepalive_interval", cfg.MCP.KeepaliveIntervalRaw, &cfg.MCP.KeepaliveInterval},
		{"tool_timeout", cfg.MCP.ToolTimeoutRaw, &cfg.MCP.ToolTimeout},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// Template returns a starter config file with the given JWT secret and
// database path.
func Template(jwtSecret, dbPath string) string {
	return fmt.Sprintf(`# nutrition-gateway configuration

server:
  http_addr: %q

database:
  path: %q

auth:
  jwt_secret: %q
  require_auth: true
  # issuer: "https://auth.example.com"
  # audience: "nutrition-gateway"
  # dev_subject: "local-dev"

mcp:
  path: %q
  mode: %q
  session_idle_timeout: "30m"
  keepalive_interval: %q
  tool_timeout: %q

discovery:
  # resource: "https://nutrition.example.com"
  # proxy_base_url: "https://auth.example.com"

logging:
  level: "info"
  format: "text"
`, DefaultHTTPAddr, dbPath, jwtSecret, DefaultMCPPath, ModeStateful,
		DefaultKeepaliveInterval, DefaultToolTimeout)
}
