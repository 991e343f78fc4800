package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default values for unspecified configuration fields.
const (
	DefaultHTTPPort        = 7592
	DefaultHTTPSPort       = 7593
	DefaultMaxBodyBytes    = 100 << 20 // 100 MiB
	DefaultShutdownTimeout = 30 * time.Second
	DefaultTokenType       = "Bearer"
	DefaultSiteLimit       = 50
	DefaultSessionType     = "filesystem"
	DefaultSessionDuration = 30 * time.Minute
	DefaultReaperInterval  = 5 * time.Minute
	DefaultMetricsPort     = 9090
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Site names are normalized to lowercase
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applySecurityDefaults(&cfg.Security)
	applySitesDefaults(cfg)
	applySessionsDefaults(&cfg.Sessions)
	applyUploadsDefaults(&cfg.Uploads)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = DefaultHTTPPort
	}
	if cfg.HTTPSPort == 0 {
		cfg.HTTPSPort = DefaultHTTPSPort
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	// RateLimit defaults to zero (unlimited)
}

func applySecurityDefaults(cfg *SecurityConfig) {
	if cfg.TokenType == "" {
		cfg.TokenType = DefaultTokenType
	}
}

// applySitesDefaults lowercases site names and fills per-site defaults.
func applySitesDefaults(cfg *Config) {
	if cfg.Sites == nil {
		cfg.Sites = make(map[string]SiteConfig)
	}

	normalized := make(map[string]SiteConfig, len(cfg.Sites))
	for name, site := range cfg.Sites {
		name = strings.ToLower(name)
		applySiteDefaults(name, &site)
		normalized[name] = site
	}
	cfg.Sites = normalized
}

func applySiteDefaults(name string, site *SiteConfig) {
	if site.Limit == 0 {
		site.Limit = DefaultSiteLimit
	}

	s := &site.Sessions
	if s.Type == "" {
		s.Type = DefaultSessionType
	}
	if s.Duration == 0 {
		s.Duration = DefaultSessionDuration
	}

	// Initialize maps if nil
	if s.Filesystem == nil {
		s.Filesystem = make(map[string]any)
	}
	if s.Badger == nil {
		s.Badger = make(map[string]any)
	}

	// Session storage lives outside the site root so that it is never listable
	if _, ok := s.Filesystem["path"]; !ok {
		s.Filesystem["path"] = filepath.Join(defaultStateDir(), "sessions", name)
	}
	if _, ok := s.Badger["db_path"]; !ok {
		s.Badger["db_path"] = filepath.Join(defaultStateDir(), "badger", name)
	}
}

func applySessionsDefaults(cfg *SessionsConfig) {
	if cfg.Reaper.Interval == 0 {
		cfg.Reaper.Interval = DefaultReaperInterval
	}
}

func applyUploadsDefaults(cfg *UploadsConfig) {
	if cfg.Mirror.S3 == nil {
		cfg.Mirror.S3 = make(map[string]any)
	}
	cfg.Mirror.Type = strings.ToLower(cfg.Mirror.Type)
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

// defaultStateDir is where session data is kept when no path is configured.
func defaultStateDir() string {
	return filepath.Join(os.TempDir(), "filebrowse")
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// The returned config contains one site, "default", rooted at
// /srv/filebrowse, and an empty access token that callers must fill in
// before the config passes validation.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{
		Sites: map[string]SiteConfig{
			"default": {
				Root:    "/srv/filebrowse",
				Filters: "xml,json,txt",
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
