package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/filebrowse/internal/logger"
	"github.com/marmos91/filebrowse/pkg/session"
	sessionBadger "github.com/marmos91/filebrowse/pkg/session/badger"
	sessionFs "github.com/marmos91/filebrowse/pkg/session/fs"
	sessionMemory "github.com/marmos91/filebrowse/pkg/session/memory"
	"github.com/marmos91/filebrowse/pkg/upload"
	"github.com/mitchellh/mapstructure"
)

// CreateSessionStore creates the session store of one site.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "filesystem": Uses pkg/session/fs (one JSON file per session)
//   - "badger": Uses pkg/session/badger (BadgerDB, persistent)
//   - "memory": Uses pkg/session/memory (ephemeral)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - name: Site name, for error messages and logging
//   - cfg: Site session configuration
func CreateSessionStore(ctx context.Context, name string, cfg *SiteSessionsConfig) (session.Store, error) {
	expiry := session.Expiry{MaxAge: cfg.Duration}

	switch cfg.Type {
	case "filesystem":
		return createFilesystemSessionStore(name, cfg.Filesystem, expiry)
	case "badger":
		return createBadgerSessionStore(ctx, name, cfg.Badger, expiry)
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Debug("Memory session store initialized: site=%s", name)
		return sessionMemory.New(expiry), nil
	default:
		return nil, fmt.Errorf("unknown session store type: %q (supported: filesystem, badger, memory)", cfg.Type)
	}
}

// createFilesystemSessionStore creates a directory-backed session store.
func createFilesystemSessionStore(name string, options map[string]any, expiry session.Expiry) (session.Store, error) {
	type FilesystemSessionStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemSessionStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem session store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem session store: path is required")
	}

	store, err := sessionFs.New(sessionFs.Config{Dir: storeCfg.Path, Expiry: expiry})
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem session store: %w", err)
	}

	logger.Debug("Filesystem session store initialized: site=%s dir=%s", name, store.Dir())
	return store, nil
}

// createBadgerSessionStore creates a BadgerDB-backed session store.
func createBadgerSessionStore(ctx context.Context, name string, options map[string]any, expiry session.Expiry) (session.Store, error) {
	type BadgerSessionStoreConfig struct {
		DBPath   string `mapstructure:"db_path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var storeCfg BadgerSessionStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger session store config: %w", err)
	}

	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger session store: db_path is required")
	}

	store, err := sessionBadger.New(ctx, sessionBadger.Config{
		DBPath:   storeCfg.DBPath,
		InMemory: storeCfg.InMemory,
		Expiry:   expiry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger session store: %w", err)
	}

	logger.Debug("Badger session store initialized: site=%s path=%s in_memory=%v", name, storeCfg.DBPath, storeCfg.InMemory)
	return store, nil
}

// CreateMirror creates the upload mirror, or returns nil when none is
// configured.
//
// Supported types:
//   - "": no mirror
//   - "s3": Amazon S3 or compatible storage
func CreateMirror(ctx context.Context, cfg *MirrorConfig) (upload.Mirror, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "s3":
		return createS3Mirror(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown upload mirror type: %q (supported: s3)", cfg.Type)
	}
}

// S3MirrorOptions are the options of the "s3" upload mirror.
type S3MirrorOptions struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// decodeS3MirrorOptions decodes and validates the s3 option map.
func decodeS3MirrorOptions(options map[string]any) (S3MirrorOptions, error) {
	var opts S3MirrorOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return opts, fmt.Errorf("failed to decode S3 mirror config: %w", err)
	}
	if opts.Bucket == "" {
		return opts, fmt.Errorf("S3 mirror: bucket is required")
	}
	if opts.Region == "" {
		return opts, fmt.Errorf("S3 mirror: region is required")
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 5
	}
	return opts, nil
}

// createS3Mirror builds an S3 client from the options and wraps it.
func createS3Mirror(ctx context.Context, options map[string]any) (upload.Mirror, error) {
	opts, err := decodeS3MirrorOptions(options)
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(opts.Region),
	}

	// Set credentials if provided, otherwise use default credential chain
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	maxRetries := opts.MaxRetries
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	mirror, err := upload.NewS3Mirror(upload.S3MirrorConfig{
		Client:    client,
		Bucket:    opts.Bucket,
		KeyPrefix: opts.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 mirror: %w", err)
	}

	logger.Info("S3 upload mirror initialized: bucket=%s, region=%s, prefix=%s",
		opts.Bucket, opts.Region, opts.KeyPrefix)

	return mirror, nil
}
