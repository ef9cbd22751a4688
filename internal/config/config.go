package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	libconfig "carrental/libs/config"
)

// Token store kinds.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config defines client configuration.
type Config struct {
	API struct {
		BaseURL string `yaml:"baseUrl" env:"CARRENTAL_API_URL"`
	} `yaml:"api"`
	HTTPClient struct {
		TimeoutSeconds int `yaml:"timeoutSeconds" env:"CARRENTAL_HTTP_TIMEOUT"`
	} `yaml:"httpClient"`
	Session struct {
		Store      string `yaml:"store" env:"CARRENTAL_TOKEN_STORE"`
		FilePath   string `yaml:"filePath" env:"CARRENTAL_TOKEN_FILE"`
		Key        string `yaml:"key" env:"CARRENTAL_TOKEN_KEY"`
		LoginRoute string `yaml:"loginRoute" env:"CARRENTAL_LOGIN_ROUTE"`
		TTLMinutes int    `yaml:"ttlMinutes" env:"CARRENTAL_TOKEN_TTL_MINUTES"`
	} `yaml:"session"`
	Redis struct {
		Addr      string `yaml:"addr" env:"CARRENTAL_REDIS_ADDR"`
		Password  string `yaml:"password" env:"CARRENTAL_REDIS_PASSWORD"`
		DB        int    `yaml:"db" env:"CARRENTAL_REDIS_DB"`
		Namespace string `yaml:"namespace" env:"CARRENTAL_REDIS_NAMESPACE"`
	} `yaml:"redis"`
	Booking struct {
		DebounceMillis int `yaml:"debounceMillis" env:"CARRENTAL_AVAILABILITY_DEBOUNCE_MS"`
	} `yaml:"booking"`
}

// Load reads configuration via the shared loader and applies defaults.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "https://api.avtoprokat-demo.ru/api/v1"
	cfg.HTTPClient.TimeoutSeconds = 10
	cfg.Session.Store = StoreFile
	cfg.Session.FilePath = defaultTokenFile()
	cfg.Session.Key = "auth_token"
	cfg.Session.LoginRoute = "/admin/login"
	cfg.Redis.Namespace = "carrental"
	cfg.Booking.DebounceMillis = 400
	return cfg
}

// Validate normalizes and checks the loaded values.
func (c *Config) Validate() error {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		return errors.New("config: api base url is required")
	}

	c.Session.Store = strings.ToLower(strings.TrimSpace(c.Session.Store))
	switch c.Session.Store {
	case StoreFile:
		if strings.TrimSpace(c.Session.FilePath) == "" {
			return errors.New("config: token file path is required for the file store")
		}
	case StoreRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("config: redis addr is required for the redis store")
		}
	case StoreMemory:
	default:
		return errors.Newf("config: unknown token store %q", c.Session.Store)
	}
	return nil
}

// HTTPTimeout returns http client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPClient.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTPClient.TimeoutSeconds) * time.Second
}

// Debounce returns the availability check debounce window.
func (c *Config) Debounce() time.Duration {
	if c.Booking.DebounceMillis < 0 {
		return 0
	}
	return time.Duration(c.Booking.DebounceMillis) * time.Millisecond
}

// TokenTTL returns how long the redis store keeps a token; zero means forever.
func (c *Config) TokenTTL() time.Duration {
	if c.Session.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "carrental", "session.json")
}
