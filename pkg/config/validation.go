package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that cannot
// be expressed in tags.
//
// Returns an error describing the first validation failure.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// TLS needs both files or neither
	if (cfg.Server.TLSCertFile == "") != (cfg.Server.TLSKeyFile == "") {
		return fmt.Errorf("server: tls_cert_file and tls_key_file must be set together")
	}
	if cfg.Server.TLSEnabled() && cfg.Server.HTTPPort == cfg.Server.HTTPSPort {
		return fmt.Errorf("server: http_port and https_port must differ (both %d)", cfg.Server.HTTPPort)
	}
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port == cfg.Server.HTTPPort || (cfg.Server.TLSEnabled() && cfg.Metrics.Port == cfg.Server.HTTPSPort) {
			return fmt.Errorf("metrics: port %d collides with an API listener", cfg.Metrics.Port)
		}
	}

	if strings.ContainsAny(cfg.Security.TokenType, " \t") {
		return fmt.Errorf("security: token_type must not contain whitespace")
	}

	for name, site := range cfg.Sites {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("sites: site name must not be empty")
		}
		if site.Sessions.Type == "filesystem" {
			if err := validateSessionDir(name, site); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateSessionDir rejects filesystem session directories inside the site
// root, where clients could list and read them.
func validateSessionDir(name string, site SiteConfig) error {
	var opts struct {
		Path string `mapstructure:"path"`
	}
	if err := mapstructure.Decode(site.Sessions.Filesystem, &opts); err != nil {
		return fmt.Errorf("sites.%s.sessions.filesystem: %w", name, err)
	}
	if opts.Path == "" {
		return fmt.Errorf("sites.%s.sessions.filesystem: path is required", name)
	}

	root, err := filepath.Abs(site.Root)
	if err != nil {
		return fmt.Errorf("sites.%s.root: %w", name, err)
	}
	dir, err := filepath.Abs(opts.Path)
	if err != nil {
		return fmt.Errorf("sites.%s.sessions.filesystem.path: %w", name, err)
	}
	if dir == root || strings.HasPrefix(dir, root+string(filepath.Separator)) {
		return fmt.Errorf("sites.%s.sessions.filesystem.path: %s must not be inside the site root %s", name, dir, root)
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
