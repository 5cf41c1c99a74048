// Package config loads server configuration from a YAML file with
// environment-variable overrides (TABLETOP_ prefix) and sane defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig configures the websocket gateway.
type ServerConfig struct {
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	// MaxSessions bounds concurrent gateway sessions.
	MaxSessions int `mapstructure:"max_sessions"`
	// UndoHistory bounds the per-session undo stack.
	UndoHistory int `mapstructure:"undo_history"`
}

// WebSocketConfig configures the websocket listener.
type WebSocketConfig struct {
	Address string `mapstructure:"address"`
	// RateLimit is the sustained messages-per-second budget per connection.
	RateLimit float64 `mapstructure:"rate_limit"`
	// RateBurst is the per-connection burst allowance.
	RateBurst    int           `mapstructure:"rate_burst"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig configures the Postgres connection for rule persistence.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
	// Enabled toggles persistence; the gateway runs memory-only when false.
	Enabled        bool          `mapstructure:"enabled"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// AuthConfig configures gateway authentication.
type AuthConfig struct {
	// TokenHash is the bcrypt hash of the shared gateway token. Empty
	// disables the check.
	TokenHash string `mapstructure:"token_hash"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given path. A missing file is not an
// error; defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.websocket.address", ":8089")
	v.SetDefault("server.websocket.rate_limit", 20.0)
	v.SetDefault("server.websocket.rate_burst", 40)
	v.SetDefault("server.websocket.write_timeout", 10*time.Second)
	v.SetDefault("server.max_sessions", 256)
	v.SetDefault("server.undo_history", 32)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.connect_timeout", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix("TABLETOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	return strings.Contains(err.Error(), "no such file")
}
