// Package web serves an http.Handler as a server.Server adapter, over
// plain HTTP or over TLS.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/filebrowse/internal/logger"
)

// Config holds configuration parameters for one listener.
//
// Default values (applied by New if zero):
//   - ReadHeaderTimeout: 10s
//   - ReadTimeout: 5m (uploads can be large)
//   - WriteTimeout: 5m
//   - IdleTimeout: 2m
//   - ShutdownTimeout: 30s
type Config struct {
	// Port is the TCP port to listen on. 0 picks an ephemeral port.
	Port int

	// TLSCertFile and TLSKeyFile enable TLS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	// ShutdownTimeout bounds the graceful shutdown triggered by context
	// cancellation.
	ShutdownTimeout time.Duration
}

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = 10 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// validate checks that the configuration is usable.
func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS certificate and key must be set together")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}

// TLS reports whether the listener serves TLS.
func (c Config) TLS() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Adapter serves an http.Handler on one port.
//
// Thread safety:
// All methods are safe for concurrent use. Stop() is idempotent.
type Adapter struct {
	config Config
	server *http.Server

	mu       sync.Mutex
	listener net.Listener

	// ready is closed once the listener is bound
	ready chan struct{}

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates an Adapter serving handler.
func New(config Config, handler http.Handler) (*Adapter, error) {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	return &Adapter{
		config: config,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
			ReadTimeout:       config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
		},
		ready: make(chan struct{}),
	}, nil
}

// Serve binds the listener and serves requests until ctx is cancelled or
// Stop is called.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener fails to start or fails while serving
func (a *Adapter) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.Port))
	if err != nil {
		return fmt.Errorf("failed to create %s listener on port %d: %w", a.Protocol(), a.config.Port, err)
	}

	a.mu.Lock()
	a.listener = listener
	a.mu.Unlock()
	close(a.ready)

	logger.Info("%s server listening on %s", a.Protocol(), listener.Addr())

	errChan := make(chan error, 1)
	go func() {
		if a.config.TLS() {
			errChan <- a.server.ServeTLS(listener, a.config.TLSCertFile, a.config.TLSKeyFile)
		} else {
			errChan <- a.server.Serve(listener)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("%s shutdown signal received: %v", a.Protocol(), ctx.Err())
		// The cancelled ctx would abort shutdown immediately
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()
		stopErr := a.Stop(shutdownCtx)
		<-errChan
		return stopErr

	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server failed: %w", a.Protocol(), err)
	}
}

// Stop gracefully shuts the listener down, waiting for active requests
// until ctx expires.
func (a *Adapter) Stop(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		logger.Debug("%s shutdown initiated", a.Protocol())

		if err := a.server.Shutdown(ctx); err != nil {
			a.shutdownErr = fmt.Errorf("%s shutdown error: %w", a.Protocol(), err)
			logger.Warn("%s shutdown did not complete: %v", a.Protocol(), err)
			return
		}
		logger.Info("%s server stopped gracefully", a.Protocol())
	})
	return a.shutdownErr
}

// Ready is closed once the listener is bound.
func (a *Adapter) Ready() <-chan struct{} {
	return a.ready
}

// Addr returns the bound address, or nil before Serve has bound it.
func (a *Adapter) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Port returns the configured TCP port.
func (a *Adapter) Port() int {
	return a.config.Port
}

// Protocol returns "HTTPS" when TLS is enabled, "HTTP" otherwise.
func (a *Adapter) Protocol() string {
	if a.config.TLS() {
		return "HTTPS"
	}
	return "HTTP"
}
