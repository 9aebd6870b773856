// ABOUTME: Configuration loading and parsing for kioskgate
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete kioskgate configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds session signing configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`

	AdminSessionTTL    time.Duration `yaml:"-"`
	OperatorSessionTTL time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	AdminSessionTTLRaw    string `yaml:"admin_session_ttl"`
	OperatorSessionTTLRaw string `yaml:"operator_session_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default session lifetimes applied when the config omits them.
const (
	DefaultAdminSessionTTL    = 8 * time.Hour
	DefaultOperatorSessionTTL = 12 * time.Hour
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
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

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	cfg.Auth.AdminSessionTTL = DefaultAdminSessionTTL
	if cfg.Auth.AdminSessionTTLRaw != "" {
		cfg.Auth.AdminSessionTTL, err = time.ParseDuration(cfg.Auth.AdminSessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing admin_session_ttl %q: %w", cfg.Auth.AdminSessionTTLRaw, err)
		}
	}

	cfg.Auth.OperatorSessionTTL = DefaultOperatorSessionTTL
	if cfg.Auth.OperatorSessionTTLRaw != "" {
		cfg.Auth.OperatorSessionTTL, err = time.ParseDuration(cfg.Auth.OperatorSessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing operator_session_ttl %q: %w", cfg.Auth.OperatorSessionTTLRaw, err)
		}
	}

	return nil
}
