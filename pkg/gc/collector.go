// Package gc provides a background reaper for expired paging sessions.
//
// Every session store already sweeps lazily on Resolve, so expired sessions
// of sites that stop receiving resume requests would otherwise linger. The
// collector calls SweepExpired on every registered store at a fixed
// interval.
package gc

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/filebrowse/internal/logger"
	"github.com/marmos91/filebrowse/pkg/session"
)

// Metrics receives sweep results. A nil Metrics disables collection.
type Metrics interface {
	RecordSweep(site string, removed int)
}

// Config contains configuration for the session reaper.
type Config struct {
	// Enabled controls whether background sweeping is active (default: false)
	Enabled bool

	// Interval is how often to sweep (default: 5m)
	Interval time.Duration

	// Timeout bounds a single sweep of all stores (default: 1m)
	Timeout time.Duration
}

// Collector periodically sweeps expired sessions from a set of stores.
//
// Thread Safety: Safe for concurrent use.
type Collector struct {
	stores    map[string]session.Store
	config    Config
	metrics   Metrics
	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	mu        sync.Mutex
}

// NewCollector creates a new session reaper.
//
// The collector is initialized but not started. Call Start() to begin
// background sweeping.
//
// Parameters:
//   - stores: Session stores keyed by site name
//   - config: Reaper configuration
//   - metrics: Optional sweep metrics (nil to disable)
func NewCollector(stores map[string]session.Store, config Config, metrics Metrics) *Collector {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}

	copied := make(map[string]session.Store, len(stores))
	for site, store := range stores {
		copied[site] = store
	}

	return &Collector{
		stores:  copied,
		config:  config,
		metrics: metrics,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins background sweeping.
//
// Safe to call multiple times (subsequent calls are no-ops).
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Session reaper disabled")
		return
	}

	c.startOnce.Do(func() {
		c.mu.Lock()
		c.started = true
		c.mu.Unlock()

		logger.Info("Starting session reaper: interval=%s sites=%d", c.config.Interval, len(c.stores))
		go c.worker()
	})
}

// Stop stops the reaper and waits for an in-progress sweep to finish.
//
// Returns ctx.Err() if ctx expires first. Safe to call multiple times and
// safe to call when the collector was never started.
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return nil
	}

	c.stopOnce.Do(func() {
		logger.Info("Stopping session reaper...")
		close(c.stopCh)
	})

	select {
	case <-c.doneCh:
		logger.Info("Session reaper stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Session reaper shutdown timeout")
		return ctx.Err()
	}
}

// RunNow sweeps every store immediately and blocks until done.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	logger.Debug("Running session sweep (manual trigger)")
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Session sweep failed: %v", err)
			} else if stats.Removed > 0 {
				logger.Info("Session sweep completed: %s", stats.Summary())
			} else {
				logger.Debug("Session sweep completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect sweeps stores in site name order. A failing store does not stop
// the others; the first error is returned after all stores were visited.
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		StartTime: time.Now(),
		PerSite:   make(map[string]session.SweepStats, len(c.stores)),
	}

	sites := make([]string, 0, len(c.stores))
	for site := range c.stores {
		sites = append(sites, site)
	}
	sort.Strings(sites)

	var firstErr error
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}

		swept, err := c.stores[site].SweepExpired(ctx)
		stats.PerSite[site] = swept
		stats.SweepStats.Add(swept)

		if err != nil {
			stats.FailedSites++
			logger.Warn("Session sweep failed: site=%s: %v", site, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("sweep site %s: %w", site, err)
			}
		}
		if c.metrics != nil && swept.Removed > 0 {
			c.metrics.RecordSweep(site, swept.Removed)
		}
	}

	stats.EndTime = time.Now()
	return stats, firstErr
}

// Stats contains statistics from a sweep of all stores.
type Stats struct {
	session.SweepStats

	StartTime   time.Time                     // When the sweep started
	EndTime     time.Time                     // When the sweep ended
	FailedSites int                           // Stores whose sweep returned an error
	PerSite     map[string]session.SweepStats // Per-store results
}

// Duration returns the total sweep duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the sweep.
func (s *Stats) Summary() string {
	return fmt.Sprintf("sites=%d %s failed_sites=%d duration=%s",
		len(s.PerSite), s.SweepStats.String(), s.FailedSites, s.Duration())
}
