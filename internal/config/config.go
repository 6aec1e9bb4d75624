// Package config loads the reconciler configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync"
	"github.com/ehving/noticesystem-sub000/internal/telemetry"
)

const (
	// StorageDatabase keeps attempts and tickets in Postgres and talks to
	// the real stores.
	StorageDatabase = "database"
	// StorageMemory keeps everything in process memory.
	StorageMemory = "memory"

	// NotifyLog writes alerts to the log.
	NotifyLog = "log"
	// NotifyWebhook posts alerts to a URL.
	NotifyWebhook = "webhook"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "NOTICE_RECONCILER"
	// EnvDatabasePassword overrides the system-of-record password.
	EnvDatabasePassword = EnvPrefix + "_DB_PASSWORD"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks; this also cleans the path.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}
		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid duration (e.g., '30m', '1h'): %w", err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the root configuration structure
type Config struct {
	Storage    StorageConfig          `yaml:"storage"`
	Database   *DatabaseConfig        `yaml:"database,omitempty"`
	Stores     map[string]StoreConfig `yaml:"stores,omitempty" validate:"dive"`
	Sync       SyncConfig             `yaml:"sync"`
	Retry      RetryConfig            `yaml:"retry"`
	FullResync FullResyncConfig       `yaml:"fullResync"`
	Conflict   ConflictConfig         `yaml:"conflict"`
	Cleanup    CleanupConfig          `yaml:"cleanup"`
	Notify     NotifyConfig           `yaml:"notify"`
	Telemetry  *telemetry.Config      `yaml:"telemetry,omitempty" validate:"-"`
	Server     ServerConfig           `yaml:"server"`
}

// StorageConfig selects where attempts and tickets live.
type StorageConfig struct {
	Type string `yaml:"type" validate:"oneof=database memory"`
}

// DatabaseConfig defines the system-of-record Postgres connection.
type DatabaseConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required,min=1,max=65535"`
	User string `yaml:"user" validate:"required"`

	// PasswordFile is the path to a file containing the database password.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	Database string `yaml:"database" validate:"required"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`

	MaxConns        int32    `yaml:"maxConns,omitempty" validate:"min=0"`
	ConnMaxLifetime Duration `yaml:"connMaxLifetime,omitempty"`

	// DynamicAuth replaces the static password with a token minted per connection.
	DynamicAuth *DynamicAuthConfig `yaml:"dynamicAuth,omitempty"`
}

// DynamicAuthConfig selects a per-connection credential source.
type DynamicAuthConfig struct {
	AWSRDSIAM *AWSRDSIAMConfig `yaml:"awsRdsIam,omitempty"`
}

// AWSRDSIAMConfig signs RDS IAM tokens. Region "detect" reads it from IMDS.
type AWSRDSIAMConfig struct {
	Region string `yaml:"region" validate:"required"`
}

// StoreConfig defines the connection to one participating store.
type StoreConfig struct {
	// Disabled excludes the store from reconciliation.
	Disabled bool `yaml:"disabled,omitempty"`
	// DSN is the driver connection string. NOTICE_RECONCILER_<STORE>_DSN overrides it.
	DSN             string   `yaml:"dsn,omitempty"`
	MaxOpenConns    int      `yaml:"maxOpenConns,omitempty" validate:"min=0"`
	MaxIdleConns    int      `yaml:"maxIdleConns,omitempty" validate:"min=0"`
	ConnMaxLifetime Duration `yaml:"connMaxLifetime,omitempty"`
}

// SyncConfig tunes the fan-out.
type SyncConfig struct {
	DefaultSource string `yaml:"defaultSource"`
	Workers       int    `yaml:"workers" validate:"min=1,max=64"`
	InlineCheck   bool   `yaml:"inlineCheck"`
	LogMode       string `yaml:"logMode" validate:"omitempty,oneof=NONE FAIL_ONLY ALL none fail_only all"`
	// ReplicateSystemTables propagates attempt and ticket rows from the
	// system of record to the other stores.
	ReplicateSystemTables bool `yaml:"replicateSystemTables"`
}

// RetryConfig drives the retry job.
type RetryConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Interval   Duration `yaml:"interval"`
	MaxRetries int      `yaml:"maxRetries" validate:"min=1"`
	BatchSize  int      `yaml:"batchSize" validate:"min=1"`
}

// FullResyncConfig drives the nightly full-table resync.
type FullResyncConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	Source  string `yaml:"source"`
}

// ConflictConfig drives detection, recheck and notification.
type ConflictConfig struct {
	Enabled             bool     `yaml:"enabled"`
	Interval            Duration `yaml:"interval"`
	RecheckLimit        int      `yaml:"recheckLimit" validate:"min=1"`
	NotifyLimit         int      `yaml:"notifyLimit" validate:"min=1"`
	NotifyCooldown      Duration `yaml:"notifyCooldown"`
	DetectLookback      Duration `yaml:"detectLookback"`
	DetectPerStoreLimit int      `yaml:"detectPerStoreLimit" validate:"min=1"`
	DetectEntityLimit   int      `yaml:"detectEntityLimit" validate:"min=1"`
}

// CleanupConfig drives attempt log cleanup.
type CleanupConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Cron       string `yaml:"cron"`
	RetainDays int    `yaml:"retainDays" validate:"min=1"`
	MaxRows    int    `yaml:"maxRows" validate:"min=1"`
}

// NotifyConfig selects and paces the alert channel.
type NotifyConfig struct {
	Type          string   `yaml:"type" validate:"oneof=log webhook"`
	WebhookURL    string   `yaml:"webhookUrl,omitempty" validate:"omitempty,url"`
	Timeout       Duration `yaml:"timeout,omitempty"`
	RatePerSecond float64  `yaml:"ratePerSecond" validate:"min=0"`
	Burst         int      `yaml:"burst" validate:"min=0"`
	AdminURLBase  string   `yaml:"adminUrlBase,omitempty" validate:"omitempty,url"`
	SubjectPrefix string   `yaml:"subjectPrefix,omitempty"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Address string `yaml:"address" validate:"required"`
}

// Default returns the configuration used for every field a file omits.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{Type: StorageDatabase},
		Sync: SyncConfig{
			DefaultSource: string(store.MySQL),
			Workers:       sync.DefaultWorkers,
			InlineCheck:   true,
			LogMode:       sync.LogFailOnly.String(),
		},
		Retry: RetryConfig{
			Enabled:    true,
			Interval:   Duration(time.Minute),
			MaxRetries: 3,
			BatchSize:  100,
		},
		FullResync: FullResyncConfig{
			Enabled: false,
			Cron:    "0 3 * * *",
			Source:  string(store.MySQL),
		},
		Conflict: ConflictConfig{
			Enabled:             true,
			Interval:            Duration(5 * time.Minute),
			RecheckLimit:        50,
			NotifyLimit:         20,
			NotifyCooldown:      Duration(30 * time.Minute),
			DetectLookback:      Duration(720 * time.Hour),
			DetectPerStoreLimit: 200,
			DetectEntityLimit:   200,
		},
		Cleanup: CleanupConfig{
			Enabled:    true,
			Cron:       "0 3 * * *",
			RetainDays: 90,
			MaxRows:    100000,
		},
		Notify: NotifyConfig{
			Type:          NotifyLog,
			RatePerSecond: 1,
			Burst:         5,
			SubjectPrefix: "[notice-system]",
		},
		Server: ServerConfig{Address: ":8080"},
	}
}

// LoadConfig loads and parses configuration from a YAML file on top of
// Default. Without WithConfigPath the defaults alone are validated.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	config := Default()
	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration, including the store DSNs in database mode.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := structValidator.Struct(c); err != nil {
		return err
	}

	for name := range c.Stores {
		if _, err := store.Parse(name); err != nil {
			return fmt.Errorf("stores: %w", err)
		}
	}
	enabled := c.EnabledStores()
	if len(enabled) < 2 {
		return fmt.Errorf("stores: at least two stores must be enabled, got %d", len(enabled))
	}

	for field, name := range map[string]string{
		"sync.defaultSource": c.Sync.DefaultSource,
		"fullResync.source":  c.FullResync.Source,
	} {
		s, err := store.Parse(name)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if !slices.Contains(enabled, s) {
			return fmt.Errorf("%s: store %s is disabled", field, s)
		}
	}

	if _, err := sync.ParseLogMode(c.Sync.LogMode); err != nil {
		return fmt.Errorf("sync.logMode: %w", err)
	}

	for field, d := range map[string]Duration{
		"retry.interval":          c.Retry.Interval,
		"conflict.interval":       c.Conflict.Interval,
		"conflict.notifyCooldown": c.Conflict.NotifyCooldown,
		"conflict.detectLookback": c.Conflict.DetectLookback,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", field)
		}
	}

	for field, spec := range map[string]string{
		"fullResync.cron": c.FullResync.Cron,
		"cleanup.cron":    c.Cleanup.Cron,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: invalid cron spec %q: %w", field, spec, err)
		}
	}

	if c.Notify.Type == NotifyWebhook && c.Notify.WebhookURL == "" {
		return errors.New("notify.webhookUrl: required when notify.type is webhook")
	}

	if c.Storage.Type == StorageDatabase {
		if c.Database == nil {
			return errors.New("database: required when storage.type is database")
		}
		for _, s := range enabled {
			if c.DSN(s) == "" {
				return fmt.Errorf("stores.%s.dsn: required when storage.type is database", s)
			}
		}
	}

	return c.Telemetry.Validate()
}

// EnabledStores returns the stores taking part in reconciliation in
// stable order. With no stores section every known store is enabled.
func (c *Config) EnabledStores() []store.Store {
	var out []store.Store
	for _, s := range store.All() {
		if sc, ok := c.Stores[string(s)]; ok && sc.Disabled {
			continue
		}
		out = append(out, s)
	}
	return out
}

// DSN returns the connection string of s, preferring the
// NOTICE_RECONCILER_<STORE>_DSN environment variable.
func (c *Config) DSN(s store.Store) string {
	if env := os.Getenv(EnvPrefix + "_" + string(s) + "_DSN"); env != "" {
		return env
	}
	return c.Stores[string(s)].DSN
}

// Store returns the settings of s, or the zero value.
func (c *Config) Store(s store.Store) StoreConfig {
	return c.Stores[string(s)]
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from NOTICE_RECONCILER_DB_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		cleanPath := filepath.Clean(d.PasswordFile)
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(EnvDatabasePassword); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", EnvDatabasePassword,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}
	return d.ConnectionStringWithPassword(password), nil
}

// ConnectionStringWithPassword builds the connection string around password,
// which may be a dynamic auth token.
func (d *DatabaseConfig) ConnectionStringWithPassword(password string) string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)
}
