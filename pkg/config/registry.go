package config

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/marmos91/filebrowse/internal/logger"
	"github.com/marmos91/filebrowse/pkg/browser"
	"github.com/marmos91/filebrowse/pkg/session"
	"github.com/marmos91/filebrowse/pkg/upload"
)

// Sites holds the initialized services of every configured site.
type Sites struct {
	services map[string]*browser.Service
	stores   map[string]session.Store
}

// Get returns the service of the named site, matched case-insensitively.
func (s *Sites) Get(name string) (*browser.Service, bool) {
	svc, ok := s.services[strings.ToLower(name)]
	return svc, ok
}

// Names returns the site names in sorted order.
func (s *Sites) Names() []string {
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stores returns the session store of every site, keyed by site name.
func (s *Sites) Stores() map[string]session.Store {
	out := make(map[string]session.Store, len(s.stores))
	for name, store := range s.stores {
		out[name] = store
	}
	return out
}

// Close closes every session store and returns the joined errors.
func (s *Sites) Close() error {
	names := make([]string, 0, len(s.stores))
	for name := range s.stores {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := s.stores[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("site %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// InitializeSites creates the session store and browser service of every
// configured site.
//
// The upload mirror (if configured) is created once and shared by all
// sites. On failure every store opened so far is closed.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Complete, validated configuration
//   - m: Browser metrics collector (nil disables collection)
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	sites, err := config.InitializeSites(ctx, cfg, nil)
//	if err != nil {
//	    log.Fatalf("Failed to initialize sites: %v", err)
//	}
//	defer sites.Close()
func InitializeSites(ctx context.Context, cfg *Config, m browser.Metrics) (*Sites, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	if len(cfg.Sites) == 0 {
		return nil, fmt.Errorf("no sites configured: at least one site is required")
	}

	mirror, err := CreateMirror(ctx, &cfg.Uploads.Mirror)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload mirror: %w", err)
	}
	writer := upload.NewWriter(mirror)

	sites := &Sites{
		services: make(map[string]*browser.Service, len(cfg.Sites)),
		stores:   make(map[string]session.Store, len(cfg.Sites)),
	}

	for name, siteCfg := range cfg.Sites {
		logger.Debug("Creating site %q (root: %s, sessions: %s)", name, siteCfg.Root, siteCfg.Sessions.Type)

		store, err := CreateSessionStore(ctx, name, &siteCfg.Sessions)
		if err != nil {
			_ = sites.Close()
			return nil, fmt.Errorf("site %q: %w", name, err)
		}
		sites.stores[name] = store

		svc, err := browser.New(browser.Options{
			Site:           name,
			Root:           siteCfg.Root,
			DefaultLimit:   siteCfg.Limit,
			DefaultFilters: siteCfg.Filters,
			Sessions:       store,
			Uploads:        writer,
			Metrics:        m,
		})
		if err != nil {
			_ = sites.Close()
			return nil, fmt.Errorf("site %q: %w", name, err)
		}
		sites.services[name] = svc

		logger.Debug("Site %q registered successfully", name)
	}

	logger.Debug("Registered %d site(s)", len(sites.services))
	return sites, nil
}
