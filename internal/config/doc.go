// Package config handles configuration loading for nutrition-gateway.
//
// Configuration is a YAML file, located by DefaultPath:
//
//  1. Path from the NUTRITION_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/nutrition/gateway.yaml
//
// Values may reference environment variables with ${VAR_NAME}; unset
// variables expand to an empty string:
//
//	auth:
//	  jwt_secret: "${NUTRITION_JWT_SECRET}"
//
// NUTRITION_DB_PATH, when set, replaces database.path.
//
// Durations use time.ParseDuration syntax:
//
//	mcp:
//	  session_idle_timeout: "30m"   # 0 or unset disables the idle janitor
//	  keepalive_interval: "25s"
//	  tool_timeout: "30s"
//
// Empty fields take the defaults exported by this package. Validate reports
// the first invalid field.
package config
