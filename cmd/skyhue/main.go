// Command skyhue runs the Sky Hue weather gateway ("serve", the default) or an
// interactive debounced city search on stdin ("search").
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kjstillabower/skyhue-weather/internal/client"
	"github.com/kjstillabower/skyhue-weather/internal/config"
	"github.com/kjstillabower/skyhue-weather/internal/observability"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := "serve"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	switch mode {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "search":
		err = searchStdin(ctx, cfg, logger)
	default:
		err = fmt.Errorf("unknown command %q (want serve or search)", mode)
	}
	if err != nil {
		logger.Fatal(mode, zap.Error(err))
	}
}

// newClients builds the weather and geocoding clients, each behind its own breaker.
// The weather breaker is returned for health reporting.
func newClients(cfg *config.Config) (*client.OpenWeatherClient, *client.GeocodingClient, *gobreaker.CircuitBreaker, error) {
	weatherClient, err := client.NewOpenWeatherClientWithRetry(
		cfg.WeatherAPIKey,
		cfg.WeatherAPIURL,
		cfg.WeatherAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("weather client: %w", err)
	}
	breaker := client.NewCircuitBreaker("openweather", cfg.CircuitBreakerFailures, cfg.CircuitBreakerTimeout)
	weatherClient.SetCircuitBreaker(breaker)

	geocoder, err := client.NewGeocodingClientWithRetry(
		cfg.WeatherAPIKey,
		cfg.GeocodingAPIURL,
		cfg.WeatherAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("geocoding client: %w", err)
	}
	geocoder.SetCircuitBreaker(client.NewCircuitBreaker("geocoding", cfg.CircuitBreakerFailures, cfg.CircuitBreakerTimeout))
	return weatherClient, geocoder, breaker, nil
}

// breakerHealth reports the weather API unhealthy while its breaker is open.
func breakerHealth(cb *gobreaker.CircuitBreaker) func(context.Context) error {
	return func(context.Context) error {
		if cb.State() == gobreaker.StateOpen {
			return client.ErrCircuitOpen
		}
		return nil
	}
}
