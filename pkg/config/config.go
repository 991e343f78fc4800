package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete FileBrowse configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (FILEBROWSE_*)
//  2. Configuration file (YAML, TOML or JSON)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each session store implementation defines its own option struct, decoded
// by the factory from the type-specific map (sessions.filesystem,
// sessions.badger). Only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains listener and request handling settings
	Server ServerConfig `mapstructure:"server"`

	// Security holds the static API token
	Security SecurityConfig `mapstructure:"security"`

	// Sites maps a site name (the value of the Site request header) to its
	// configuration. Names are case-insensitive.
	Sites map[string]SiteConfig `mapstructure:"sites" validate:"required,min=1,dive"`

	// Sessions contains settings shared by all session stores
	Sessions SessionsConfig `mapstructure:"sessions"`

	// Uploads configures upload post-processing
	Uploads UploadsConfig `mapstructure:"uploads"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains listener and request handling settings.
type ServerConfig struct {
	// HTTPPort is the plain HTTP listener port
	HTTPPort int `mapstructure:"http_port" validate:"gt=0,lte=65535"`

	// HTTPSPort is the TLS listener port, used only when both TLS files are set
	HTTPSPort int `mapstructure:"https_port" validate:"gt=0,lte=65535"`

	// TLSCertFile is the PEM certificate (chain) file
	TLSCertFile string `mapstructure:"tls_cert_file"`

	// TLSKeyFile is the PEM private key file
	TLSKeyFile string `mapstructure:"tls_key_file"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// MaxBodyBytes caps the size of request bodies
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"gt=0"`

	// ErrorLog receives access log lines for requests that name no known site
	ErrorLog string `mapstructure:"error_log"`

	// RateLimit throttles requests per client IP
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// TLSEnabled reports whether the HTTPS listener should be started.
func (c ServerConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// RateLimitConfig configures per-client request throttling.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client IP (0 = unlimited)
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the bucket capacity (0 = same as RequestsPerSecond)
	Burst uint `mapstructure:"burst"`
}

// SecurityConfig holds the static API token.
//
// Requests must carry "Authorization: <TokenType> <AccessToken>".
type SecurityConfig struct {
	TokenType   string `mapstructure:"token_type" validate:"required"`
	AccessToken string `mapstructure:"access_token" validate:"required"`
}

// SiteConfig defines one browsable site.
type SiteConfig struct {
	// Root is the directory remote paths are resolved under
	Root string `mapstructure:"root" validate:"required"`

	// Limit is the default (and maximum) page size
	Limit int `mapstructure:"limit" validate:"gt=0"`

	// Filters is the default extension filter, e.g. "xml,json"
	Filters string `mapstructure:"filters"`

	// LogFile receives this site's access log; empty logs through the process logger
	LogFile string `mapstructure:"log_file"`

	// Sessions configures where paging sessions of this site are kept
	Sessions SiteSessionsConfig `mapstructure:"sessions"`
}

// SiteSessionsConfig specifies the session store of a site.
//
// The Type field determines which store implementation is used.
type SiteSessionsConfig struct {
	// Type specifies which session store implementation to use
	// Valid values: filesystem, badger, memory
	Type string `mapstructure:"type" validate:"required,oneof=filesystem badger memory"`

	// Duration is how long a session stays resumable
	Duration time.Duration `mapstructure:"duration" validate:"gt=0"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// SessionsConfig contains settings shared by all session stores.
type SessionsConfig struct {
	Reaper ReaperConfig `mapstructure:"reaper"`
}

// ReaperConfig configures background session sweeping.
type ReaperConfig struct {
	// Enabled starts the background reaper (sessions are always swept lazily)
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often the reaper runs
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
}

// UploadsConfig configures upload post-processing.
type UploadsConfig struct {
	Mirror MirrorConfig `mapstructure:"mirror"`
}

// MirrorConfig selects an optional object storage mirror for uploads.
type MirrorConfig struct {
	// Type is empty (no mirror) or "s3"
	Type string `mapstructure:"type" validate:"omitempty,oneof=s3"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,gt=0,lte=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FILEBROWSE_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the FILEBROWSE_ prefix and underscores
	// Example: FILEBROWSE_SECURITY_ACCESS_TOKEN=secret
	v.SetEnvPrefix("FILEBROWSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about, so bind the
	// scalar settings that are commonly injected through the environment.
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"server.http_port", "server.https_port", "server.tls_cert_file", "server.tls_key_file",
		"server.error_log",
		"security.token_type", "security.access_token",
		"metrics.enabled", "metrics.port",
		"sessions.reaper.enabled", "sessions.reaper.interval",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/filebrowse/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			// A missing config file is acceptable: defaults and env apply
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "filebrowse")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "filebrowse")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// Site returns the configuration of the named site, matched case-insensitively.
func (c *Config) Site(name string) (SiteConfig, bool) {
	site, ok := c.Sites[strings.ToLower(name)]
	return site, ok
}
