// Package config provides configuration management for vodforge using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort          = 8080
	defaultServerTimeout       = 30 * time.Second
	defaultShutdownTimeout     = 10 * time.Second
	defaultConcurrency         = 3
	defaultMaxRetry            = 3
	defaultDownloadConcurrency = 5
	defaultUploadConcurrency   = 50
	defaultListLimit           = 100
	defaultHTTPTimeout         = 60 * time.Second
	defaultWatchdogCron        = "*/5 * * * * *"
	defaultThumbnailIntervalS  = 5
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Transfer  TransferConfig  `mapstructure:"transfer"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Watchdog  WatchdogConfig  `mapstructure:"watchdog"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ListLimit       int           `mapstructure:"list_limit"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds filesystem storage configuration.
type StorageConfig struct {
	// TempDir is the shared temp root for per-job working directories.
	// Empty means the OS temp directory.
	TempDir string `mapstructure:"temp_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// QueueConfig holds job queue and worker pool configuration.
type QueueConfig struct {
	// Concurrency is the number of jobs processed simultaneously.
	Concurrency int `mapstructure:"concurrency"`
	// MaxRetry bounds per-stage and per-transfer retry attempts.
	MaxRetry int `mapstructure:"max_retry"`
	// Isolation selects the execution model: "process" spawns one OS process
	// per job; "none" runs the pipeline in-process with a bounded retry loop.
	Isolation string `mapstructure:"isolation"`
	// InitialItems is a JSON array (or single object) of seed conversion
	// requests replayed as normal submissions at startup.
	InitialItems string `mapstructure:"initial_items"`
}

// TransferConfig holds download/upload sub-queue configuration.
type TransferConfig struct {
	DownloadConcurrency int           `mapstructure:"download_concurrency"`
	UploadConcurrency   int           `mapstructure:"upload_concurrency"`
	HTTPTimeout         time.Duration `mapstructure:"http_timeout"`
}

// ToolsConfig holds external tool binary configuration.
type ToolsConfig struct {
	FFmpegPath   string `mapstructure:"ffmpeg_path"`   // Path to ffmpeg binary (empty = PATH lookup)
	FFprobePath  string `mapstructure:"ffprobe_path"`  // Path to ffprobe binary
	PackagerPath string `mapstructure:"packager_path"` // Path to shaka packager binary
	// ThumbnailInterval is the sampling interval in seconds for the
	// thumbnail track.
	ThumbnailInterval int `mapstructure:"thumbnail_interval"`
}

// WatchdogConfig holds idle-shutdown watchdog configuration.
type WatchdogConfig struct {
	// IgnoreCheckProcess disables the idle-shutdown check entirely.
	IgnoreCheckProcess bool `mapstructure:"ignore_check_process"`
	// Cron is a 6-field (seconds-enabled) cron expression for the check.
	Cron string `mapstructure:"cron"`
}

// TelemetryConfig holds the fire-and-forget error reporting sink.
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	SinkURL string `mapstructure:"sink_url"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with VODFORGE_ and use underscores for
// nesting. Example: VODFORGE_QUEUE_CONCURRENCY=4.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/vodforge")
		v.AddConfigPath("$HOME/.vodforge")
	}

	v.SetEnvPrefix("VODFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a Config with every default applied and no file or
// environment input.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("default config does not unmarshal: %v", err))
	}
	return &cfg
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.list_limit", defaultListLimit)

	// Database defaults
	v.SetDefault("database.dsn", "vodforge.db")
	v.SetDefault("database.max_open_conns", 6)
	v.SetDefault("database.max_idle_conns", 3)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")

	// Storage defaults
	v.SetDefault("storage.temp_dir", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Queue defaults
	v.SetDefault("queue.concurrency", defaultConcurrency)
	v.SetDefault("queue.max_retry", defaultMaxRetry)
	v.SetDefault("queue.isolation", "process")
	v.SetDefault("queue.initial_items", "")

	// Transfer defaults
	v.SetDefault("transfer.download_concurrency", defaultDownloadConcurrency)
	v.SetDefault("transfer.upload_concurrency", defaultUploadConcurrency)
	v.SetDefault("transfer.http_timeout", defaultHTTPTimeout)

	// Tools defaults
	v.SetDefault("tools.ffmpeg_path", "ffmpeg")
	v.SetDefault("tools.ffprobe_path", "ffprobe")
	v.SetDefault("tools.packager_path", "packager")
	v.SetDefault("tools.thumbnail_interval", defaultThumbnailIntervalS)

	// Watchdog defaults
	v.SetDefault("watchdog.ignore_check_process", false)
	v.SetDefault("watchdog.cron", defaultWatchdogCron)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.sink_url", "")
}

// BindLegacyEnv maps the bare environment variable names recognized by
// earlier deployments onto their config keys. The prefixed VODFORGE_* form
// always works through AutomaticEnv; these are fallbacks.
func BindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("queue.concurrency", "VODFORGE_QUEUE_CONCURRENCY", "CONCURRENCY")
	_ = v.BindEnv("queue.max_retry", "VODFORGE_QUEUE_MAX_RETRY", "MAX_RETRY")
	_ = v.BindEnv("queue.initial_items", "VODFORGE_QUEUE_INITIAL_ITEMS", "INITIAL_ITEMS")
	_ = v.BindEnv("watchdog.ignore_check_process", "VODFORGE_WATCHDOG_IGNORE_CHECK_PROCESS", "IGNORE_CHECK_PROCESS")
	_ = v.BindEnv("telemetry.enabled", "VODFORGE_TELEMETRY_ENABLED", "TELEMETRY_ENABLED")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}
	if c.Server.ListLimit < 1 {
		return fmt.Errorf("server.list_limit must be at least 1")
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("queue.concurrency must be at least 1")
	}
	if c.Queue.MaxRetry < 0 {
		return fmt.Errorf("queue.max_retry must not be negative")
	}
	switch c.Queue.Isolation {
	case "process", "none":
	default:
		return fmt.Errorf("queue.isolation must be one of: process, none")
	}

	if c.Transfer.DownloadConcurrency < 1 {
		return fmt.Errorf("transfer.download_concurrency must be at least 1")
	}
	if c.Transfer.UploadConcurrency < 1 {
		return fmt.Errorf("transfer.upload_concurrency must be at least 1")
	}

	if c.Tools.ThumbnailInterval < 1 {
		return fmt.Errorf("tools.thumbnail_interval must be at least 1")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
