package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeSites(t *testing.T) {
	cfg := &Config{
		Security: SecurityConfig{AccessToken: "secret"},
		Sites: map[string]SiteConfig{
			"reports": {
				Root:    t.TempDir(),
				Limit:   10,
				Filters: "xml",
				Sessions: SiteSessionsConfig{
					Filesystem: map[string]any{"path": filepath.Join(t.TempDir(), "sessions")},
				},
			},
			"archive": {
				Root:     t.TempDir(),
				Sessions: SiteSessionsConfig{Type: "memory"},
			},
		},
	}
	ApplyDefaults(cfg)
	require.NoError(t, Validate(cfg))

	sites, err := InitializeSites(t.Context(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = sites.Close() }()

	assert.Equal(t, []string{"archive", "reports"}, sites.Names())
	assert.Len(t, sites.Stores(), 2)

	svc, ok := sites.Get("Reports")
	require.True(t, ok)
	assert.Equal(t, "reports", svc.Site())
	assert.Equal(t, 10, svc.DefaultLimit())
	assert.Equal(t, "xml", svc.DefaultSettings().Filters)

	_, ok = sites.Get("missing")
	assert.False(t, ok)
}

func TestInitializeSites_StoreFailure(t *testing.T) {
	cfg := &Config{
		Sites: map[string]SiteConfig{
			"reports": {
				Root: t.TempDir(),
				Sessions: SiteSessionsConfig{
					Type:   "badger",
					Badger: map[string]any{"db_path": ""},
				},
			},
		},
	}
	ApplyDefaults(cfg)

	_, err := InitializeSites(t.Context(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `site "reports"`)
}

func TestInitializeSites_NoSites(t *testing.T) {
	_, err := InitializeSites(t.Context(), &Config{}, nil)
	assert.Error(t, err)

	_, err = InitializeSites(t.Context(), nil, nil)
	assert.Error(t, err)
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	result := InitializeMetrics(&Config{})
	assert.Nil(t, result.Server)
	assert.Nil(t, result.Browser)
	assert.Nil(t, result.HTTP)
}
