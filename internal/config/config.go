// Package config loads anchor's layered configuration: defaults, then the YAML
// config file, then ANCHOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/utils"
)

// Config is the top-level anchor configuration.
type Config struct {
	Storage  Storage  `mapstructure:"storage"`
	UserID   string   `mapstructure:"user_id"`
	Timezone string   `mapstructure:"timezone"`
	Debug    bool     `mapstructure:"debug"`
	LLM      LLM      `mapstructure:"llm"`
	Pipeline Pipeline `mapstructure:"pipeline"`
	Notify   Notify   `mapstructure:"notify"`
	Backup   Backup   `mapstructure:"backup"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type Storage struct {
	// Path is a SQLite file path or a password-free PostgreSQL URL.
	Path string `mapstructure:"path"`
}

type LLM struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

type Pipeline struct {
	ObservationCap int `mapstructure:"observation_cap"`
}

type Notify struct {
	Enabled bool `mapstructure:"enabled"`
}

type Backup struct {
	Auto bool `mapstructure:"auto"`
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

// Dir returns the expanded configuration directory.
func Dir() string {
	return ExpandPath(constants.DefaultConfigDir)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.path", DefaultStorage.Path)
	v.SetDefault("user_id", constants.DefaultUserID)
	v.SetDefault("timezone", "Local")
	v.SetDefault("debug", false)
	v.SetDefault("llm.provider", DefaultLLM.Provider)
	v.SetDefault("llm.model", DefaultLLM.Model)
	v.SetDefault("llm.base_url", DefaultLLM.BaseURL)
	v.SetDefault("llm.timeout", DefaultLLM.Timeout)
	v.SetDefault("llm.max_retries", DefaultLLM.MaxRetries)
	v.SetDefault("llm.requests_per_minute", DefaultLLM.RequestsPerMinute)
	v.SetDefault("pipeline.observation_cap", DefaultPipeline.ObservationCap)
	v.SetDefault("notify.enabled", DefaultNotify.Enabled)
	v.SetDefault("backup.auto", DefaultBackup.Auto)
}

// Load reads configuration from cfgFile (or the default location) and returns a
// validated Config with all defaults applied. A missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(ExpandPath(cfgFile))
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType(DefaultConfigType)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.File); err != nil {
		cfg.File = ""
	}

	if !IsPostgres(cfg.Storage.Path) {
		cfg.Storage.Path = ExpandPath(cfg.Storage.Path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path must not be empty")
	}
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("user_id must not be empty")
	}
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must not be negative, got %d", c.LLM.RequestsPerMinute)
	}
	if c.Pipeline.ObservationCap < 1 {
		return fmt.Errorf("pipeline.observation_cap must be at least 1, got %d", c.Pipeline.ObservationCap)
	}
	return nil
}

// IsPostgres reports whether a storage path is a PostgreSQL URL.
func IsPostgres(path string) bool {
	return strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://")
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return utils.LoadLocation(c.Timezone)
}
