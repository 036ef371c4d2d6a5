//go:build integration
// +build integration

// Package testhelpers wires real backends for tests run with -tags integration.
package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/skyhue-weather/internal/client"
	"github.com/kjstillabower/skyhue-weather/internal/kvstore"
	"github.com/kjstillabower/skyhue-weather/internal/weather"
)

// IntegrationConfig holds endpoints for integration tests, read from the environment.
type IntegrationConfig struct {
	APIKey          string
	WeatherAPIURL   string
	GeocodingAPIURL string
	RedisAddr       string
	MemcachedAddrs  string
}

// GetIntegrationConfig loads endpoints from the environment with local defaults.
// The API key may be empty; tests that call OpenWeather use RequireAPIKey.
func GetIntegrationConfig() IntegrationConfig {
	return IntegrationConfig{
		APIKey:          os.Getenv("WEATHER_API_KEY"),
		WeatherAPIURL:   envOr("WEATHER_API_URL", "https://api.openweathermap.org/data/2.5"),
		GeocodingAPIURL: envOr("GEOCODING_API_URL", "https://api.openweathermap.org/geo/1.0"),
		RedisAddr:       envOr("REDIS_ADDR", "localhost:6379"),
		MemcachedAddrs:  envOr("MEMCACHED_ADDRS", "localhost:11211"),
	}
}

// RequireAPIKey skips the test when WEATHER_API_KEY is not set.
func (c IntegrationConfig) RequireAPIKey(t *testing.T) {
	t.Helper()
	if c.APIKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}
}

// SetupAggregator returns an aggregator backed by the live OpenWeather API.
func SetupAggregator(t *testing.T, cfg IntegrationConfig) *weather.Aggregator {
	t.Helper()
	cfg.RequireAPIKey(t)
	c, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.WeatherAPIURL, 10*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return weather.NewAggregator(c, nil)
}

// SetupGeocoder returns a geocoding client for the live API.
func SetupGeocoder(t *testing.T, cfg IntegrationConfig) *client.GeocodingClient {
	t.Helper()
	cfg.RequireAPIKey(t)
	g, err := client.NewGeocodingClient(cfg.APIKey, cfg.GeocodingAPIURL, 10*time.Second)
	if err != nil {
		t.Fatalf("NewGeocodingClient() error = %v", err)
	}
	return g
}

// OpenStore opens backend through kvstore.Open and skips the test when it is unreachable.
// The store is closed when the test ends.
func OpenStore(t *testing.T, backend string, cfg IntegrationConfig) kvstore.Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := kvstore.Open(ctx, kvstore.Config{
		Backend:               backend,
		SQLitePath:            t.TempDir() + "/integration.db",
		RedisAddr:             cfg.RedisAddr,
		MemcachedAddrs:        cfg.MemcachedAddrs,
		MemcachedTimeout:      500 * time.Millisecond,
		MemcachedMaxIdleConns: 2,
	}, nil)
	if err != nil {
		t.Skipf("%s not reachable: %v", backend, err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
