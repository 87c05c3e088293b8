package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mmcdole/infiniscroll/internal/domain"
	"github.com/mmcdole/infiniscroll/internal/source/remote"
	"github.com/mmcdole/infiniscroll/internal/source/synthetic"
	"github.com/mmcdole/infiniscroll/internal/viewport"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Watcher WatcherConfig `mapstructure:"watcher"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SourceConfig selects and tunes the item source
type SourceConfig struct {
	Type      domain.SourceKind `mapstructure:"type"`       // "remote" or "synthetic"
	Endpoint  string            `mapstructure:"endpoint"`   // Remote only
	BatchSize int               `mapstructure:"batch_size"` // 0 = per-source default
	Delay     time.Duration     `mapstructure:"delay"`      // Synthetic only
	Seed      int               `mapstructure:"seed"`       // Synthetic only: items present before the first fetch
	Limit     int               `mapstructure:"limit"`      // Synthetic only: 0 = unbounded
	Timeout   time.Duration     `mapstructure:"timeout"`    // Per-batch fetch timeout
}

// WatcherConfig tunes sentinel visibility detection
type WatcherConfig struct {
	Root      string  `mapstructure:"root"`      // "viewport" or "list"
	Margin    int     `mapstructure:"margin"`    // Rows added around the root (negative shrinks it)
	Threshold float64 `mapstructure:"threshold"` // Fraction of the sentinel that must be visible
}

// CacheConfig controls the on-disk dataset snapshot
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Dir     string        `mapstructure:"dir"`
	MaxAge  time.Duration `mapstructure:"max_age"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// MetricsConfig holds the optional Prometheus listener address
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Watcher root names
const (
	RootViewport = "viewport"
	RootList     = "list"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type:     domain.SourceRemote,
			Endpoint: remote.DefaultEndpoint,
			Delay:    synthetic.DefaultDelay,
			Seed:     25,
			Timeout:  30 * time.Second,
		},
		Watcher: WatcherConfig{
			Root:      RootViewport,
			Margin:    0,
			Threshold: viewport.DefaultThreshold,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     defaultCachePath(),
			MaxAge:  24 * time.Hour,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "infiniscroll", "infiniscroll.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "infiniscroll", "infiniscroll.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "infiniscroll")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "infiniscroll")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "infiniscroll", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "infiniscroll", "cache")
	}
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New(), defaultConfigPath(), ".")
}

// LoadConfigFrom loads configuration searching only the given directories
func LoadConfigFrom(dirs ...string) (*Config, error) {
	return loadConfig(viper.New(), dirs...)
}

func loadConfig(v *viper.Viper, dirs ...string) (*Config, error) {
	// A .env file next to the binary may supply INFINISCROLL_* variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	// Environment variable overrides
	v.SetEnvPrefix("INFINISCROLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("source.type", string(cfg.Source.Type))
	v.SetDefault("source.endpoint", cfg.Source.Endpoint)
	v.SetDefault("source.batch_size", cfg.Source.BatchSize)
	v.SetDefault("source.delay", cfg.Source.Delay)
	v.SetDefault("source.seed", cfg.Source.Seed)
	v.SetDefault("source.limit", cfg.Source.Limit)
	v.SetDefault("source.timeout", cfg.Source.Timeout)

	v.SetDefault("watcher.root", cfg.Watcher.Root)
	v.SetDefault("watcher.margin", cfg.Watcher.Margin)
	v.SetDefault("watcher.threshold", cfg.Watcher.Threshold)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.max_age", cfg.Cache.MaxAge)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)

	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	switch c.Source.Type {
	case domain.SourceRemote, domain.SourceSynthetic:
	default:
		return fmt.Errorf("unknown source type: %q", c.Source.Type)
	}
	if c.Source.BatchSize < 0 {
		return fmt.Errorf("source.batch_size must not be negative")
	}
	switch c.Watcher.Root {
	case RootViewport, RootList:
	default:
		return fmt.Errorf("unknown watcher root: %q", c.Watcher.Root)
	}
	if c.Watcher.Threshold < 0 || c.Watcher.Threshold > 1 {
		return fmt.Errorf("watcher.threshold must be within [0, 1], got %v", c.Watcher.Threshold)
	}
	return nil
}

// BatchSize returns the configured batch size or the source's default
func (c *Config) BatchSize() int {
	if c.Source.BatchSize > 0 {
		return c.Source.BatchSize
	}
	return domain.DefaultBatchSize(c.Source.Type)
}

// CachePath returns the snapshot directory, or "" when the snapshot is disabled
func (c *Config) CachePath() string {
	if !c.Cache.Enabled {
		return ""
	}
	return expandHome(c.Cache.Dir)
}

// ClearCache removes all cached data
func ClearCache(dir string) error {
	if err := os.RemoveAll(expandHome(dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
