package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// Units requested from the provider. The app always asks for imperial and
// converts for display.
const (
	UnitsImperial = "imperial"
	UnitsMetric   = "metric"
)

// WeatherClient fetches raw provider payloads for a coordinate pair.
type WeatherClient interface {
	GetCurrent(ctx context.Context, lat, lon float64, units string) (CurrentConditions, error)
	GetForecast(ctx context.Context, lat, lon float64, units string) (Forecast, error)
}

// OpenWeatherClient talks to the OpenWeather 2.5 data API
// (e.g. https://api.openweathermap.org/data/2.5).
type OpenWeatherClient struct {
	*transport
}

// NewOpenWeatherClient returns a client that makes exactly one attempt per call.
func NewOpenWeatherClient(apiKey, apiURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	return NewOpenWeatherClientWithRetry(apiKey, apiURL, timeout, 1, 0, 0)
}

func NewOpenWeatherClientWithRetry(apiKey, apiURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*OpenWeatherClient, error) {
	t, err := newTransport(apiKey, apiURL, timeout, retryAttempts, retryBaseDelay, retryMaxDelay)
	if err != nil {
		return nil, err
	}
	return &OpenWeatherClient{transport: t}, nil
}

// SetCircuitBreaker guards every upstream call with cb. Pass nil to disable.
func (c *OpenWeatherClient) SetCircuitBreaker(cb *gobreaker.CircuitBreaker) {
	c.breaker = cb
}

func coordParams(lat, lon float64, units string) url.Values {
	if units == "" {
		units = UnitsImperial
	}
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	params.Set("units", units)
	return params
}

// GetCurrent calls GET /weather.
func (c *OpenWeatherClient) GetCurrent(ctx context.Context, lat, lon float64, units string) (CurrentConditions, error) {
	var out CurrentConditions
	if err := c.getJSON(ctx, "weather", coordParams(lat, lon, units), &out); err != nil {
		return CurrentConditions{}, fmt.Errorf("current weather: %w", err)
	}
	return out, nil
}

// GetForecast calls GET /forecast (5 days in 3-hour slots).
func (c *OpenWeatherClient) GetForecast(ctx context.Context, lat, lon float64, units string) (Forecast, error) {
	var out Forecast
	if err := c.getJSON(ctx, "forecast", coordParams(lat, lon, units), &out); err != nil {
		return Forecast{}, fmt.Errorf("forecast: %w", err)
	}
	return out, nil
}

// ValidateAPIKey issues a cheap current-weather request and reports key problems.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx, "weather", coordParams(51.5074, -0.1278, UnitsImperial))
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}
	return nil
}
