package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_Empty(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, DefaultHTTPPort, cfg.Server.HTTPPort)
	assert.Equal(t, DefaultHTTPSPort, cfg.Server.HTTPSPort)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.Server.MaxBodyBytes)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "Bearer", cfg.Security.TokenType)
	assert.NotNil(t, cfg.Sites)
	assert.Equal(t, DefaultReaperInterval, cfg.Sessions.Reaper.Interval)
	assert.NotNil(t, cfg.Uploads.Mirror.S3)
	assert.Equal(t, DefaultMetricsPort, cfg.Metrics.Port)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "warn", Format: "json", Output: "stderr"},
		Server:  ServerConfig{HTTPPort: 8080, ShutdownTimeout: time.Second},
		Sites: map[string]SiteConfig{
			"reports": {
				Root:  "/data",
				Limit: 7,
				Sessions: SiteSessionsConfig{
					Type:       "memory",
					Duration:   time.Hour,
					Filesystem: map[string]any{"path": "/var/lib/sessions"},
				},
			},
		},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, time.Second, cfg.Server.ShutdownTimeout)

	site := cfg.Sites["reports"]
	assert.Equal(t, 7, site.Limit)
	assert.Equal(t, "memory", site.Sessions.Type)
	assert.Equal(t, time.Hour, site.Sessions.Duration)
	assert.Equal(t, "/var/lib/sessions", site.Sessions.Filesystem["path"])
}

func TestApplyDefaults_Sites(t *testing.T) {
	cfg := &Config{
		Sites: map[string]SiteConfig{
			"Reports": {Root: "/data/reports"},
		},
	}
	ApplyDefaults(cfg)

	_, upper := cfg.Sites["Reports"]
	assert.False(t, upper, "site names should be lowercased")

	site, ok := cfg.Sites["reports"]
	if !assert.True(t, ok) {
		return
	}
	assert.Equal(t, DefaultSiteLimit, site.Limit)
	assert.Equal(t, DefaultSessionType, site.Sessions.Type)
	assert.Equal(t, DefaultSessionDuration, site.Sessions.Duration)
	assert.Equal(t, filepath.Join(defaultStateDir(), "sessions", "reports"), site.Sessions.Filesystem["path"])
	assert.Equal(t, filepath.Join(defaultStateDir(), "badger", "reports"), site.Sessions.Badger["db_path"])
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	site, ok := cfg.Site("default")
	if !assert.True(t, ok) {
		return
	}
	assert.Equal(t, "/srv/filebrowse", site.Root)
	assert.Equal(t, "xml,json,txt", site.Filters)
	assert.Empty(t, cfg.Security.AccessToken)

	// Only the access token is missing
	cfg.Security.AccessToken = "secret"
	assert.NoError(t, Validate(cfg))
}
