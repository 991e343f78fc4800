package config

import (
	"github.com/marmos91/filebrowse/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Browser collects listing, session and upload metrics (nil if disabled;
	// a nil collector is a no-op)
	Browser *metrics.BrowserMetrics

	// HTTP collects API request metrics (nil if disabled)
	HTTP *metrics.HTTPMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed collectors for the browser and the API
//
// If metrics are disabled every field is nil. The collectors are nil-safe,
// so callers pass them along unconditionally.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Metrics.Port,
	})

	return &MetricsResult{
		Server:  server,
		Browser: metrics.NewBrowserMetrics(),
		HTTP:    metrics.NewHTTPMetrics(),
	}
}
