// Package config loads client configuration from defaults, an optional TOML
// file, a local .env file and YCF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ycf/billing-portal/internal/localstore"
)

// DefaultBaseURL is the production billing API origin.
const DefaultBaseURL = "https://ycfbillingbackend.onrender.com"

// Config holds application configuration.
type Config struct {
	API      APIConfig
	State    StateConfig
	Log      LogConfig
	Login    LoginConfig
	Expenses ExpensesConfig
}

// APIConfig holds gateway settings.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StateConfig points at the local state directory.
type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig holds the zap level name.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LoginConfig tunes the client-side login limiter.
type LoginConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Window      time.Duration `mapstructure:"window"`
}

// ExpensesConfig holds ledger paging defaults.
type ExpensesConfig struct {
	PageLimit int `mapstructure:"page_limit"`
}

// Load reads configuration. A .env file in the working directory is loaded
// first (missing is fine); YCF_CONFIG selects an explicit config file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("state.dir", localstore.DefaultDir())
	v.SetDefault("log.level", "warn")
	v.SetDefault("login.max_failures", 5)
	v.SetDefault("login.window", 15*time.Minute)
	v.SetDefault("expenses.page_limit", 50)

	v.SetConfigType("toml")
	if p := os.Getenv("YCF_CONFIG"); p != "" {
		v.SetConfigFile(p)
	} else {
		v.AddConfigPath(localstore.DefaultDir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("YCF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
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

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("config: api.base_url is empty")
	}
	if c.API.Timeout <= 0 {
		return errors.New("config: api.timeout must be positive")
	}
	if c.Login.MaxFailures <= 0 || c.Login.Window <= 0 {
		return errors.New("config: login.max_failures and login.window must be positive")
	}
	if c.Expenses.PageLimit <= 0 {
		return errors.New("config: expenses.page_limit must be positive")
	}
	return nil
}

// ConfigPath returns where a config file would be looked up.
func ConfigPath() string {
	if p := os.Getenv("YCF_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(localstore.DefaultDir(), "config.toml")
}
