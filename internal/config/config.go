package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Provider ProviderConfig
	Runner   RunnerConfig
	Log      LogConfig
	HTTP     HTTPConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// ProviderConfig selects where language bundles come from.
type ProviderConfig struct {
	Mode      string // "db" or "mock"
	CacheSize int    `mapstructure:"cache_size"`
}

// RunnerConfig controls program execution.
type RunnerConfig struct {
	BinDir  string `mapstructure:"bin_dir"`
	Catalog string // optional HCL catalog; empty uses the built-in one
	Timeout time.Duration
}

// LogConfig controls the log sink.
type LogConfig struct {
	Level   string
	Format  string
	File    string
	Journal bool
}

// HTTPConfig holds the serve command's listen address.
type HTTPConfig struct {
	Addr string
}

const (
	ProviderDB   = "db"
	ProviderMock = "mock"
)

// Path returns the config file location, honouring HWEXPLORER_CONFIG.
func Path() string {
	if p := os.Getenv("HWEXPLORER_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "hwexplorer", "config.toml")
}

func setDefaults(v *viper.Viper) {
	home := os.Getenv("HOME")
	v.SetDefault("database.path", filepath.Join(home, ".local", "share", "hwexplorer", "hwexplorer.db"))
	v.SetDefault("provider.mode", ProviderDB)
	v.SetDefault("provider.cache_size", 32)
	v.SetDefault("runner.bin_dir", "binaries")
	v.SetDefault("runner.catalog", "")
	v.SetDefault("runner.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", filepath.Join(home, ".local", "state", "hwexplorer", "hwexplorer.log"))
	v.SetDefault("log.journal", false)
	v.SetDefault("http.addr", "127.0.0.1:8765")
}

// Load reads configuration from file and env. Env var overrides use prefix HWEXPLORER_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("HWEXPLORER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing file is fine; a malformed one is not
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	if errors.As(err, &nf) {
		return true
	}
	return os.IsNotExist(err)
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	switch c.Provider.Mode {
	case ProviderDB, ProviderMock:
	default:
		return fmt.Errorf("provider.mode: want %q or %q, got %q", ProviderDB, ProviderMock, c.Provider.Mode)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: want text or json, got %q", c.Log.Format)
	}
	if c.Runner.Timeout < 0 {
		return fmt.Errorf("runner.timeout: must not be negative")
	}
	return nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("provider.mode", cfg.Provider.Mode)
	v.Set("provider.cache_size", cfg.Provider.CacheSize)
	v.Set("runner.bin_dir", cfg.Runner.BinDir)
	v.Set("runner.catalog", cfg.Runner.Catalog)
	v.Set("runner.timeout", cfg.Runner.Timeout.String())
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("log.file", cfg.Log.File)
	v.Set("log.journal", cfg.Log.Journal)
	v.Set("http.addr", cfg.HTTP.Addr)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
