package adapter

import (
	"context"
)

// Adapter represents a listener that can be managed by server.Server.
//
// Each adapter serves one endpoint (the API over HTTP, the API over HTTPS,
// the metrics endpoint) and provides a unified interface for lifecycle
// management.
//
// Lifecycle:
//  1. Creation: Adapter is created with its configuration and handler
//  2. Startup: Serve() starts listening and blocks until shutdown
//  3. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. Stop() may be called
// concurrently with Serve().
type Adapter interface {
	// Serve starts the listener and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown:
	//   - Stop accepting new connections
	//   - Wait for active requests to complete (with timeout)
	//   - Return nil
	//
	// If Serve returns an error before context cancellation, server.Server
	// treats it as fatal and stops all other adapters.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown of the listener.
	//
	// Implementations must:
	//   - Be safe to call multiple times (idempotent)
	//   - Be safe to call concurrently with Serve()
	//   - Respect the context timeout for shutdown operations
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging.
	//
	// Examples: "HTTP", "HTTPS", "Metrics"
	Protocol() string

	// Port returns the configured TCP port. 0 means an ephemeral port.
	Port() int
}
