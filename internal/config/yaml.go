package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level admind configuration file. The
// mapstructure tags let viper decode the same layout from flags and
// environment variables.
type YAMLConfig struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	MCP      MCPConfig      `yaml:"mcp" mapstructure:"mcp"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host" mapstructure:"host"`
	Port            int        `yaml:"port" mapstructure:"port"`
	MaxBodySize     string     `yaml:"max_body_size" mapstructure:"max_body_size"`
	ShutdownTimeout string     `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	UploadDir       string     `yaml:"upload_dir" mapstructure:"upload_dir"`
	SecureCookies   bool       `yaml:"secure_cookies" mapstructure:"secure_cookies"`
	CORS            CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins" mapstructure:"origins"`
}

// AuthConfig controls token issuance and sign-in throttling.
type AuthConfig struct {
	JWTSecret      string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	AccessTTL      string `yaml:"access_ttl" mapstructure:"access_ttl"`
	RefreshTTL     string `yaml:"refresh_ttl" mapstructure:"refresh_ttl"`
	LoginRateLimit int    `yaml:"login_rate_limit" mapstructure:"login_rate_limit"`
}

// DatabaseConfig selects the database holding admind's state.
type DatabaseConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// CacheConfig configures the optional Redis privilege cache.
type CacheConfig struct {
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`
	TTL       string `yaml:"ttl" mapstructure:"ttl"`
}

// MCPConfig controls the MCP (Model Context Protocol) server.
type MCPConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Transport string `yaml:"transport" mapstructure:"transport"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before parsing.
// Keys missing from the file keep their defaults.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables: ${VAR_NAME}
	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxBodySize:     "10MB",
			ShutdownTimeout: "30s",
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
		},
		Auth: AuthConfig{
			AccessTTL:      "15m",
			RefreshTTL:     "168h",
			LoginRateLimit: 10,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Cache: CacheConfig{
			TTL: "5m",
		},
		MCP: MCPConfig{
			Enabled:   true,
			Transport: "stdio",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultYAML renders the default configuration as YAML.
func DefaultYAML() ([]byte, error) {
	return yaml.Marshal(DefaultYAMLConfig())
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	data, err := DefaultYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Duration parses a duration setting, returning def when the value is empty
// or malformed.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ByteSize parses sizes such as "10MB", "512KB" or "1048576".
func ByteSize(s string, def int64) int64 {
	var n int64
	var unit string
	if _, err := fmt.Sscanf(s, "%d%s", &n, &unit); err != nil {
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
			return def
		}
		return n
	}
	switch unit {
	case "B", "b":
	case "KB", "kb", "K", "k":
		n <<= 10
	case "MB", "mb", "M", "m":
		n <<= 20
	case "GB", "gb", "G", "g":
		n <<= 30
	default:
		return def
	}
	if n <= 0 {
		return def
	}
	return n
}
