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
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/skyhue-weather/internal/client"
	"github.com/kjstillabower/skyhue-weather/internal/kvstore"
)

// Config holds service configuration loaded from YAML, .env and the environment.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIURL     string
	GeocodingAPIURL   string
	WeatherAPITimeout time.Duration
	Units             string

	RequestTimeout time.Duration

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	CircuitBreakerFailures uint32
	CircuitBreakerTimeout  time.Duration

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout time.Duration

	StoreBackend          string
	SQLitePath            string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	SearchDebounce  time.Duration
	RefreshInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL          string `yaml:"url"`
		GeocodingURL string `yaml:"geocoding_url"`
		Timeout      string `yaml:"timeout"`
		Units        string `yaml:"units"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RetryMaxAttempts        int    `yaml:"retry_max_attempts"`
		RetryBaseDelay          string `yaml:"retry_base_delay"`
		RetryMaxDelay           string `yaml:"retry_max_delay"`
		CircuitBreakerFailures  uint32 `yaml:"circuit_breaker_failures"`
		CircuitBreakerOpenDelay string `yaml:"circuit_breaker_open_delay"`
		RateLimitRPS            int    `yaml:"rate_limit_rps"`
		RateLimitBurst          int    `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Store struct {
		Backend string `yaml:"backend"`
		SQLite  struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
		Redis struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"store"`

	Session struct {
		SearchDebounce  string `yaml:"search_debounce"`
		RefreshInterval string `yaml:"refresh_interval"`
	} `yaml:"session"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
	RedisPassword string `yaml:"redis_password"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// A .env file in the working directory is applied first without overriding set variables.
// The API key comes from WEATHER_API_KEY or the secrets file. Call from project root.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := loadSecrets(filepath.Join(cwd, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.WeatherAPIKey = firstNonEmpty(os.Getenv("WEATHER_API_KEY"), sec.WeatherAPIKey)
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set env, .env or config/secrets.yaml weather_api_key)")
	}

	cfg.WeatherAPIURL = firstNonEmpty(fc.WeatherAPI.URL, "https://api.openweathermap.org/data/2.5")
	cfg.GeocodingAPIURL = firstNonEmpty(fc.WeatherAPI.GeocodingURL, "https://api.openweathermap.org/geo/1.0")
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 5*time.Second)
	cfg.Units = strings.ToLower(firstNonEmpty(strings.TrimSpace(fc.WeatherAPI.Units), client.UnitsImperial))

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.CircuitBreakerFailures = fc.Reliability.CircuitBreakerFailures
	if cfg.CircuitBreakerFailures == 0 {
		cfg.CircuitBreakerFailures = 5
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.Reliability.CircuitBreakerOpenDelay, 30*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	cfg.StoreBackend = strings.ToLower(firstNonEmpty(
		strings.TrimSpace(os.Getenv("STORE_BACKEND")),
		strings.TrimSpace(fc.Store.Backend),
		kvstore.BackendSQLite,
	))
	cfg.SQLitePath = firstNonEmpty(strings.TrimSpace(os.Getenv("SQLITE_PATH")), fc.Store.SQLite.Path, "skyhue.db")
	cfg.RedisAddr = firstNonEmpty(strings.TrimSpace(os.Getenv("REDIS_ADDR")), fc.Store.Redis.Addr, "localhost:6379")
	cfg.RedisPassword = firstNonEmpty(os.Getenv("REDIS_PASSWORD"), sec.RedisPassword)
	cfg.RedisDB = fc.Store.Redis.DB
	cfg.MemcachedAddrs = firstNonEmpty(strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS")), strings.TrimSpace(fc.Store.Memcached.Addrs), "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Store.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Store.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.SearchDebounce = parseDuration(fc.Session.SearchDebounce, 300*time.Millisecond)
	cfg.RefreshInterval = parseDurationOrZero(fc.Session.RefreshInterval, 0)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StoreConfig returns the kvstore settings.
func (c *Config) StoreConfig() kvstore.Config {
	return kvstore.Config{
		Backend:               c.StoreBackend,
		SQLitePath:            c.SQLitePath,
		RedisAddr:             c.RedisAddr,
		RedisPassword:         c.RedisPassword,
		RedisDB:               c.RedisDB,
		MemcachedAddrs:        c.MemcachedAddrs,
		MemcachedTimeout:      c.MemcachedTimeout,
		MemcachedMaxIdleConns: c.MemcachedMaxIdleConns,
	}
}

func loadSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero returns defaultVal on empty string or parse error.
// Zero and negative durations are returned as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate checks loaded values and raises RequestTimeout above WeatherAPITimeout.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	if cfg.RefreshInterval < 0 {
		return fmt.Errorf("session.refresh_interval must not be negative")
	}
	switch cfg.Units {
	case client.UnitsImperial, client.UnitsMetric:
	default:
		return fmt.Errorf("weather_api.units must be %s or %s, got %q", client.UnitsImperial, client.UnitsMetric, cfg.Units)
	}
	switch cfg.StoreBackend {
	case kvstore.BackendSQLite, kvstore.BackendRedis, kvstore.BackendMemcached, kvstore.BackendMemory:
	default:
		return fmt.Errorf("store.backend must be sqlite, redis, memcached or memory, got %q", cfg.StoreBackend)
	}
	return nil
}
