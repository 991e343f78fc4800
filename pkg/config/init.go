package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const configHeader = `# FileBrowse Configuration File
#
# Every setting can be overridden with an environment variable named
# FILEBROWSE_<SECTION>_<KEY>, e.g. FILEBROWSE_SECURITY_ACCESS_TOKEN.

`

// InitConfig writes a sample configuration to the default location and
// returns its path.
//
// The generated file contains a freshly generated access token. An existing
// file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	cfg := GetDefaultConfig()
	cfg.Security.AccessToken = uuid.NewString()

	content, err := generateYAMLWithComments(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file holds the access token
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg as commented YAML that Load accepts.
func generateYAMLWithComments(cfg *Config) (string, error) {
	names := make([]string, 0, len(cfg.Sites))
	for name := range cfg.Sites {
		names = append(names, name)
	}
	sort.Strings(names)

	sites := make([][]*yaml.Node, 0, len(names))
	for _, name := range names {
		site := cfg.Sites[name]
		sites = append(sites, section(name, "", mapping(
			entry("root", site.Root, "Directory remote paths are resolved under"),
			entry("limit", site.Limit, "Default and maximum page size"),
			entry("filters", site.Filters, "Default extension filter (comma separated)"),
			entry("log_file", site.LogFile, "Access log of this site (empty logs through the process logger)"),
			section("sessions", "Paging sessions: filesystem, badger or memory", mapping(
				entry("type", site.Sessions.Type, ""),
				entry("duration", site.Sessions.Duration.String(), "How long a session stays resumable"),
				entry("filesystem", site.Sessions.Filesystem, ""),
				entry("badger", site.Sessions.Badger, ""),
			)),
		)))
	}

	root := mapping(
		section("logging", "Logging configuration", mapping(
			entry("level", cfg.Logging.Level, "DEBUG, INFO, WARN or ERROR"),
			entry("format", cfg.Logging.Format, "text or json"),
			entry("output", cfg.Logging.Output, "stdout, stderr or a file path"),
		)),
		section("server", "HTTP(S) listeners", mapping(
			entry("http_port", cfg.Server.HTTPPort, ""),
			entry("https_port", cfg.Server.HTTPSPort, "Used only when both TLS files are set"),
			entry("tls_cert_file", cfg.Server.TLSCertFile, ""),
			entry("tls_key_file", cfg.Server.TLSKeyFile, ""),
			entry("shutdown_timeout", cfg.Server.ShutdownTimeout.String(), ""),
			entry("max_body_bytes", cfg.Server.MaxBodyBytes, "Maximum request body size"),
			entry("error_log", cfg.Server.ErrorLog, "Access log for requests naming no known site"),
			section("rate_limit", "Per client IP, 0 = unlimited", mapping(
				entry("requests_per_second", cfg.Server.RateLimit.RequestsPerSecond, ""),
				entry("burst", cfg.Server.RateLimit.Burst, ""),
			)),
		)),
		section("security", `Requests must send "Authorization: <token_type> <access_token>"`, mapping(
			entry("token_type", cfg.Security.TokenType, ""),
			entry("access_token", cfg.Security.AccessToken, ""),
		)),
		section("sites", "Sites, selected by the Site request header", mapping(sites...)),
		section("sessions", "Background removal of expired sessions", mapping(
			section("reaper", "", mapping(
				entry("enabled", cfg.Sessions.Reaper.Enabled, ""),
				entry("interval", cfg.Sessions.Reaper.Interval.String(), ""),
			)),
		)),
		section("uploads", "Optional S3 copy of every uploaded file", mapping(
			section("mirror", "", mapping(
				entry("type", cfg.Uploads.Mirror.Type, "empty or s3"),
				entry("s3", cfg.Uploads.Mirror.S3, ""),
			)),
		)),
		section("metrics", "Prometheus endpoint", mapping(
			entry("enabled", cfg.Metrics.Enabled, ""),
			entry("port", cfg.Metrics.Port, ""),
		)),
	)

	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// mapping builds a mapping node from key/value pairs.
func mapping(pairs ...[]*yaml.Node) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, pair := range pairs {
		n.Content = append(n.Content, pair...)
	}
	return n
}

func section(name, comment string, value *yaml.Node) []*yaml.Node {
	k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
	if comment != "" {
		k.HeadComment = "# " + comment
	}
	return []*yaml.Node{k, value}
}

// entry encodes one scalar or map value. Values that cannot be encoded
// render as null.
func entry(name string, value any, comment string) []*yaml.Node {
	v := &yaml.Node{}
	if err := v.Encode(value); err != nil {
		v = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	return section(name, comment, v)
}
