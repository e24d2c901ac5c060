package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

const defaultConfigPath = "config/config.yaml"

// Config global configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	MySQL      MySQLConfig      `yaml:"mysql"`
	Logger     LoggerConfig     `yaml:"logger"`
	Shredder   ShredderConfig   `yaml:"shredder"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Providers  *ProvidersConfig `yaml:"providers,omitempty"` // Providers configuration (optional)
}

// ServerConfig server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"`    // debug, release
	APIKey string `yaml:"api_key"` // protects manual triggers; empty disables auth
}

// RedisConfig Redis configuration. An empty Addr disables redis and run locking.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ShredderConfig accounting log parsing
type ShredderConfig struct {
	LogDir     string `yaml:"log_dir"`     // directory of daily accounting files
	Host       string `yaml:"host"`        // overrides the host parsed from each record
	Timezone   string `yaml:"timezone"`    // zone of record timestamps and file names
	DateFormat string `yaml:"date_format"` // Go layout of the record timestamp
}

// AggregatorConfig rollup rebuild
type AggregatorConfig struct {
	EndOffsetDays *int          `yaml:"end_offset_days"` // intervals end this many days before the run
	LockKey       string        `yaml:"lock_key"`
	IngestLockKey string        `yaml:"ingest_lock_key"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
}

// ScheduleConfig periodic runs in serve mode
type ScheduleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Interval        time.Duration `yaml:"interval"` // ingest followed by aggregate
	AlignToInterval bool          `yaml:"align_to_interval"`
}

// ProvidersConfig providers configuration
type ProvidersConfig struct {
	Store string `yaml:"store"` // mysql, memory
}

// Defaults
const (
	DefaultServerPort        = 8080
	DefaultLoggerLevel       = "info"
	DefaultLoggerOutput      = "console"
	DefaultLogFileMaxSizeMB  = 100
	DefaultLogFileMaxBackups = 7
	DefaultLogFileMaxAgeDays = 30
	DefaultDateFormat        = "01/02/2006 15:04:05"
	DefaultEndOffsetDays     = 1
	DefaultLockKey           = "pbsacct:aggregate-lock"
	DefaultIngestLockKey     = "pbsacct:ingest-lock"
	DefaultLockTTL           = 10 * time.Minute
	DefaultScheduleInterval  = 24 * time.Hour
	DefaultStoreProvider     = "mysql"
	DefaultMySQLPort         = 3306
)

// Init loads configuration from path, CONFIG_PATH, or the default location
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	GlobalConfig = cfg
	return nil
}

// Load reads and validates a configuration file without touching GlobalConfig
func Load(path string) (*Config, error) {
	configPath := resolvePath(path)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
	}

	validateAndApplyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	validateAndApplyDefaults(cfg)
	return cfg
}

func resolvePath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return defaultConfigPath
}

// Location returns the configured time zone, time.Local when unset or invalid
func (c ShredderConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// StoreProvider returns the configured store provider
func (c *Config) StoreProvider() string {
	if c.Providers == nil || c.Providers.Store == "" {
		return DefaultStoreProvider
	}
	return c.Providers.Store
}

// validateAndApplyDefaults replaces zero or invalid values with defaults
func validateAndApplyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode != "debug" && cfg.Server.Mode != "release" {
		cfg.Server.Mode = "release"
	}

	if cfg.MySQL.Port <= 0 {
		cfg.MySQL.Port = DefaultMySQLPort
	}

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		cfg.Logger.Level = DefaultLoggerLevel
	}
	switch cfg.Logger.Output {
	case "console", "file", "both":
	default:
		cfg.Logger.Output = DefaultLoggerOutput
	}
	if cfg.Logger.File.MaxSizeMB <= 0 {
		cfg.Logger.File.MaxSizeMB = DefaultLogFileMaxSizeMB
	}
	if cfg.Logger.File.MaxBackups <= 0 {
		cfg.Logger.File.MaxBackups = DefaultLogFileMaxBackups
	}
	if cfg.Logger.File.MaxAgeDays <= 0 {
		cfg.Logger.File.MaxAgeDays = DefaultLogFileMaxAgeDays
	}
	if cfg.Logger.Output != "console" && cfg.Logger.File.Path == "" {
		cfg.Logger.File.Path = "logs/pbsacct.log"
	}

	if cfg.Shredder.DateFormat == "" {
		cfg.Shredder.DateFormat = DefaultDateFormat
	}
	if cfg.Shredder.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Shredder.Timezone); err != nil {
			cfg.Shredder.Timezone = ""
		}
	}

	if cfg.Aggregator.EndOffsetDays == nil || *cfg.Aggregator.EndOffsetDays < 0 {
		offset := DefaultEndOffsetDays
		cfg.Aggregator.EndOffsetDays = &offset
	}
	if cfg.Aggregator.LockKey == "" {
		cfg.Aggregator.LockKey = DefaultLockKey
	}
	if cfg.Aggregator.IngestLockKey == "" {
		cfg.Aggregator.IngestLockKey = DefaultIngestLockKey
	}
	if cfg.Aggregator.LockTTL <= 0 {
		cfg.Aggregator.LockTTL = DefaultLockTTL
	}

	if cfg.Schedule.Interval <= 0 {
		cfg.Schedule.Interval = DefaultScheduleInterval
	}

	if cfg.Providers == nil {
		cfg.Providers = &ProvidersConfig{}
	}
	switch cfg.Providers.Store {
	case "mysql", "memory":
	default:
		cfg.Providers.Store = DefaultStoreProvider
	}
}
