package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"

	"github.com/kjstillabower/skyhue-weather/internal/models"
	"github.com/kjstillabower/skyhue-weather/internal/observability"
)

// ErrGeocodingFailed wraps every search or reverse lookup failure.
var ErrGeocodingFailed = errors.New("geocoding failed")

const (
	// MinQueryLength is the trimmed rune count below which Search returns nothing.
	MinQueryLength = 2
	searchLimit    = 10
)

// Geocoder resolves place names and coordinates.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]models.CityCandidate, error)
	Reverse(ctx context.Context, lat, lon float64) (*models.CityCandidate, error)
}

// GeocodingClient talks to the OpenWeather geocoding API
// (e.g. http://api.openweathermap.org/geo/1.0).
type GeocodingClient struct {
	*transport
}

func NewGeocodingClient(apiKey, apiURL string, timeout time.Duration) (*GeocodingClient, error) {
	return NewGeocodingClientWithRetry(apiKey, apiURL, timeout, 1, 0, 0)
}

func NewGeocodingClientWithRetry(apiKey, apiURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*GeocodingClient, error) {
	t, err := newTransport(apiKey, apiURL, timeout, retryAttempts, retryBaseDelay, retryMaxDelay)
	if err != nil {
		return nil, err
	}
	return &GeocodingClient{transport: t}, nil
}

func (c *GeocodingClient) SetCircuitBreaker(cb *gobreaker.CircuitBreaker) {
	c.breaker = cb
}

// Search returns up to ten candidates for query in provider order.
// Queries shorter than MinQueryLength after trimming return an empty slice
// without touching the network.
func (c *GeocodingClient) Search(ctx context.Context, query string) ([]models.CityCandidate, error) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < MinQueryLength {
		observability.GeocodingQueriesTotal.WithLabelValues("search", "skipped").Inc()
		return []models.CityCandidate{}, nil
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("limit", fmt.Sprint(searchLimit))

	var raw []geocodingResult
	if err := c.getJSON(ctx, "direct", params, &raw); err != nil {
		observability.GeocodingQueriesTotal.WithLabelValues("search", "error").Inc()
		return nil, fmt.Errorf("%w: search %q: %w", ErrGeocodingFailed, q, err)
	}

	out := make([]models.CityCandidate, 0, len(raw))
	for _, r := range raw {
		out = append(out, normalize(r))
	}
	observability.GeocodingQueriesTotal.WithLabelValues("search", resultLabel(len(out))).Inc()
	return out, nil
}

// Reverse resolves coordinates to the nearest named place.
// An empty result set yields (nil, nil).
func (c *GeocodingClient) Reverse(ctx context.Context, lat, lon float64) (*models.CityCandidate, error) {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	params.Set("limit", "1")

	var raw []geocodingResult
	if err := c.getJSON(ctx, "reverse", params, &raw); err != nil {
		observability.GeocodingQueriesTotal.WithLabelValues("reverse", "error").Inc()
		return nil, fmt.Errorf("%w: reverse %s,%s: %w", ErrGeocodingFailed, formatCoord(lat), formatCoord(lon), err)
	}
	observability.GeocodingQueriesTotal.WithLabelValues("reverse", resultLabel(len(raw))).Inc()
	if len(raw) == 0 {
		return nil, nil
	}
	cand := normalize(raw[0])
	return &cand, nil
}

func normalize(r geocodingResult) models.CityCandidate {
	return models.CityCandidate{
		Name:    r.Name,
		State:   r.State,
		Country: r.Country,
		Lat:     r.Lat,
		Lon:     r.Lon,
	}
}

func resultLabel(n int) string {
	if n == 0 {
		return "empty"
	}
	return "found"
}
