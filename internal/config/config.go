// Package config handles application configuration via TOML files.
// Configuration is stored at ~/.config/segment-switch/config.toml and covers
// the settings store, connection probing, theme overrides, logging, metrics
// and tracing. Environment variables override the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/litescript/ls-segment-switch/internal/catalog"
	"github.com/litescript/ls-segment-switch/internal/connection"
)

// Environment variables read by Load.
const (
	EnvConfigDir     = "SEGMENT_SWITCH_CONFIG_DIR"
	EnvStoreDriver   = "SEGMENT_SWITCH_STORE_DRIVER"
	EnvStorePath     = "SEGMENT_SWITCH_STORE_PATH"
	EnvLogLevel      = "SEGMENT_SWITCH_LOG_LEVEL"
	EnvMetricsListen = "SEGMENT_SWITCH_METRICS_LISTEN"
	EnvOTLPEndpoint  = "OTEL_EXPORTER_OTLP_ENDPOINT"

	envConnPrefix = "SEGMENT_SWITCH_CONN_"
	envConnURL    = "_URL"
	envConnKey    = "_KEY"
)

// Config holds application configuration
type Config struct {
	DefaultSegment string           `toml:"default_segment"`
	Store          StoreConfig      `toml:"store"`
	Connection     ConnectionConfig `toml:"connection"`
	Theme          ThemeConfig      `toml:"theme"`
	Log            LogConfig        `toml:"log"`
	Metrics        MetricsConfig    `toml:"metrics"`
	Telemetry      TelemetryConfig  `toml:"telemetry"`
}

// StoreConfig selects the settings backend
type StoreConfig struct {
	// Driver is one of "file", "sqlite" or "memory".
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// ConnectionConfig holds probe settings shared by every segment
type ConnectionConfig struct {
	ProbeResource  string `toml:"probe_resource"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ThemeConfig holds theme override settings
type ThemeConfig struct {
	OverridesDir string `toml:"overrides_dir"`
	// Watch reloads the active theme when override files change.
	Watch bool `toml:"watch"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	// File receives log output. The TUI owns the terminal, so an empty
	// value only makes sense for the plain subcommands.
	File string `toml:"file"`
}

// MetricsConfig holds the Prometheus listener address
type MetricsConfig struct {
	// Listen is a host:port. Empty disables the listener.
	Listen string `toml:"listen"`
}

// TelemetryConfig holds OTLP trace export settings
type TelemetryConfig struct {
	OTLPEndpoint string `toml:"otlp_endpoint"`
	Insecure     bool   `toml:"insecure"`
	ServiceName  string `toml:"service_name"`
}

// Dir returns the configuration directory
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "segment-switch")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default returns the default configuration
func Default() Config {
	dir := Dir()
	return Config{
		DefaultSegment: string(catalog.DefaultSegment),
		Store: StoreConfig{
			Driver: "file",
			Path:   filepath.Join(dir, "settings.toml"),
		},
		Connection: ConnectionConfig{
			ProbeResource:  connection.DefaultProbeResource,
			TimeoutSeconds: int(connection.DefaultTimeout / time.Second),
		},
		Theme: ThemeConfig{
			OverridesDir: dir,
			Watch:        true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   filepath.Join(dir, "segment-switch.log"),
		},
		Telemetry: TelemetryConfig{
			ServiceName: "segment-switch",
		},
	}
}

// Load reads config from disk or returns defaults
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config file at path, then applies environment
// overrides. A missing file yields the defaults.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvStoreDriver)); v != "" {
		cfg.Store.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorePath)); v != "" {
		cfg.Store.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvMetricsListen); ok {
		cfg.Metrics.Listen = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvOTLPEndpoint)); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := catalog.Parse(c.DefaultSegment); err != nil {
		errs = append(errs, fmt.Errorf("default_segment: %w", err))
	}
	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case "", "file", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if c.Connection.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("connection.timeout_seconds: must be positive, got %d", c.Connection.TimeoutSeconds))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Segment returns the parsed default segment, falling back to the catalog
// default.
func (c Config) Segment() catalog.SegmentID {
	id, err := catalog.Parse(c.DefaultSegment)
	if err != nil {
		return catalog.DefaultSegment
	}
	return id
}

// ProbeTimeout returns the connection timeout as a duration.
func (c Config) ProbeTimeout() time.Duration {
	if c.Connection.TimeoutSeconds <= 0 {
		return connection.DefaultTimeout
	}
	return time.Duration(c.Connection.TimeoutSeconds) * time.Second
}

// Save writes config to disk
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes cfg to path, replacing the file atomically.
func SaveTo(path string, cfg Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped. With no arguments it reads .env in the working
// directory and in Dir().
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", filepath.Join(Dir(), ".env")}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ConnectionsFromEnv collects connection configs from
// SEGMENT_SWITCH_CONN_<SEGMENT>_URL and SEGMENT_SWITCH_CONN_<SEGMENT>_KEY.
// A segment needs both variables. environ is in os.Environ form. Results
// follow catalog order; unknown segments and invalid URLs are reported in
// the returned error alongside the usable configs.
func ConnectionsFromEnv(environ []string) ([]connection.Config, error) {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envConnPrefix) {
			continue
		}
		vars[key] = value
	}

	found := make(map[catalog.SegmentID]connection.Config)
	var errs []error
	names := make([]string, 0, len(vars))
	for key := range vars {
		names = append(names, key)
	}
	sort.Strings(names)

	for _, key := range names {
		if !strings.HasSuffix(key, envConnURL) {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(key, envConnPrefix), envConnURL)
		segment, err := catalog.Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		credential, ok := vars[envConnPrefix+raw+envConnKey]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: missing %s%s%s", key, envConnPrefix, raw, envConnKey))
			continue
		}
		cfg := connection.Config{
			Segment:     segment,
			EndpointURL: strings.TrimSpace(vars[key]),
			Credential:  strings.TrimSpace(credential),
		}
		if err := cfg.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		found[segment] = cfg
	}

	var out []connection.Config
	for _, id := range catalog.IDs() {
		if cfg, ok := found[id]; ok {
			out = append(out, cfg)
		}
	}
	return out, errors.Join(errs...)
}
