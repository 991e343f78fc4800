package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/filebrowse/internal/api"
	"github.com/marmos91/filebrowse/internal/logger"
	"github.com/marmos91/filebrowse/internal/ratelimiter"
	"github.com/marmos91/filebrowse/pkg/adapter/web"
	"github.com/marmos91/filebrowse/pkg/config"
	"github.com/marmos91/filebrowse/pkg/gc"
	"github.com/marmos91/filebrowse/pkg/server"
)

const usage = `FileBrowse - paged directory listing and upload API

Usage:
  filebrowse [serve] [-config <path>]   Start the server (default)
  filebrowse init [-config <path>] [-force]
                                        Write a sample configuration file

Environment variables (FILEBROWSE_*) override configuration file values,
e.g. FILEBROWSE_SECURITY_ACCESS_TOKEN or FILEBROWSE_SERVER_HTTP_PORT.
`

// limiterPruneInterval is how often idle rate limit buckets are dropped.
const limiterPruneInterval = time.Minute

func main() {
	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	var err error
	switch command {
	case "serve":
		err = runServe(args)
	case "init":
		err = runInit(args)
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to write the config file (default: "+config.GetDefaultConfigPath()+")")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	_ = fs.Parse(args)

	path := *configPath
	if path == "" {
		written, err := config.InitConfig(*force)
		if err != nil {
			return err
		}
		path = written
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	fmt.Println("Edit the sites section, then start the server with: filebrowse serve")
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Configure(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("FileBrowse starting")
	logger.Info("Log level: %s, format: %s", cfg.Logging.Level, cfg.Logging.Format)

	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		logger.Info("Metrics enabled on port %d", metricsResult.Server.Port())
	}

	sites, err := config.InitializeSites(ctx, cfg, metricsResult.Browser)
	if err != nil {
		return fmt.Errorf("failed to initialize sites: %w", err)
	}
	defer func() {
		if err := sites.Close(); err != nil {
			logger.Error("Failed to close session stores: %v", err)
		}
	}()
	for _, name := range sites.Names() {
		site, _ := cfg.Site(name)
		logger.Info("Site %s: root=%s limit=%d sessions=%s", name, site.Root, site.Limit, site.Sessions.Type)
	}

	collector := gc.NewCollector(sites.Stores(), gc.Config{
		Enabled:  cfg.Sessions.Reaper.Enabled,
		Interval: cfg.Sessions.Reaper.Interval,
	}, metricsResult.Browser)
	collector.Start()
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer stopCancel()
		if err := collector.Stop(stopCtx); err != nil {
			logger.Warn("Session reaper did not stop cleanly: %v", err)
		}
	}()

	limiter := ratelimiter.NewKeyed(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst, 0)
	if limiter.Enabled() {
		logger.Info("Rate limit: %d req/s per client (burst %d)",
			cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
		go pruneLimiter(ctx, limiter)
	}

	siteLogs := make(map[string]string, len(cfg.Sites))
	for name, site := range cfg.Sites {
		siteLogs[name] = site.LogFile
	}

	handler, err := api.New(api.Options{
		Sites:        sites,
		TokenType:    cfg.Security.TokenType,
		AccessToken:  cfg.Security.AccessToken,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		RateLimiter:  limiter,
		AccessLog:    api.NewAccessLog(cfg.Server.ErrorLog, siteLogs),
		Metrics:      metricsResult.HTTP,
	})
	if err != nil {
		return fmt.Errorf("failed to create API handler: %w", err)
	}

	srv := server.New(cfg.Server.ShutdownTimeout)

	httpAdapter, err := web.New(web.Config{
		Port:            cfg.Server.HTTPPort,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, handler)
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener: %w", err)
	}
	if err := srv.AddAdapter(httpAdapter); err != nil {
		return err
	}

	if cfg.Server.TLSEnabled() {
		httpsAdapter, err := web.New(web.Config{
			Port:            cfg.Server.HTTPSPort,
			TLSCertFile:     cfg.Server.TLSCertFile,
			TLSKeyFile:      cfg.Server.TLSKeyFile,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, handler)
		if err != nil {
			return fmt.Errorf("failed to create HTTPS listener: %w", err)
		}
		if err := srv.AddAdapter(httpsAdapter); err != nil {
			return err
		}
	}

	if metricsResult.Server != nil {
		if err := srv.AddAdapter(metricsResult.Server); err != nil {
			return err
		}
	}

	logger.Info("FileBrowse is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// pruneLimiter drops idle client buckets until ctx is cancelled.
func pruneLimiter(ctx context.Context, limiter *ratelimiter.Keyed) {
	ticker := time.NewTicker(limiterPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(); n > 0 {
				logger.Debug("Pruned %d idle rate limit buckets", n)
			}
		}
	}
}
