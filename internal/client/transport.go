package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kjstillabower/skyhue-weather/internal/observability"
)

var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
	ErrCircuitOpen      = errors.New("circuit breaker open")
)

// transport is the HTTP plumbing shared by the weather and geocoding clients:
// query building, status classification, optional retry and circuit breaking.
type transport struct {
	apiKey         string
	apiURL         string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *gobreaker.CircuitBreaker
}

func newTransport(apiKey, apiURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*transport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if _, err := url.Parse(apiURL); err != nil || apiURL == "" {
		return nil, fmt.Errorf("invalid API URL %q", apiURL)
	}
	if retryAttempts <= 0 {
		retryAttempts = 1
	}
	return &transport{
		apiKey:         apiKey,
		apiURL:         strings.TrimRight(apiURL, "/"),
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		// Per-call deadlines come from the request context so that
		// timeouts surface as context.DeadlineExceeded.
		client: &http.Client{},
	}, nil
}

// NewCircuitBreaker builds a breaker that opens after failureThreshold
// consecutive upstream failures and probes again after timeout.
func NewCircuitBreaker(name string, failureThreshold uint32, timeout time.Duration) *gobreaker.CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.RecordCircuitBreakerTransition(name, from.String(), to.String())
		},
	})
}

// getJSON performs GET {apiURL}/{endpoint}?params&appid and decodes the body into out.
// Attempts beyond the first only happen when retryAttempts > 1.
func (t *transport) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt < t.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.UpstreamRetriesTotal.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.calculateBackoff(attempt)):
			}
		}

		err := t.callOnce(ctx, endpoint, params, out)
		if err == nil {
			return nil
		}
		lastErr = err
		observability.UpstreamErrorsTotal.WithLabelValues(endpoint, string(CategorizeError(err))).Inc()
		if ctx.Err() != nil || !t.isRetryable(err) {
			return err
		}
	}

	if t.retryAttempts > 1 {
		return fmt.Errorf("exhausted retries: %w", lastErr)
	}
	return lastErr
}

// callOnce runs a single request. Only transport errors, 429 and 5xx count
// against the circuit breaker; 4xx answers are returned without tripping it.
func (t *transport) callOnce(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if t.breaker == nil {
		body, err := t.fetch(ctx, endpoint, params)
		if err != nil {
			return err
		}
		return decode(body, out)
	}

	var clientErr error
	result, err := t.breaker.Execute(func() (interface{}, error) {
		body, err := t.fetch(ctx, endpoint, params)
		if err != nil && (errors.Is(err, ErrInvalidAPIKey) || errors.Is(err, ErrLocationNotFound)) {
			clientErr = err
			return nil, nil
		}
		return body, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return err
	}
	if clientErr != nil {
		return clientErr
	}
	body, _ := result.([]byte)
	return decode(body, out)
}

func (t *transport) fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	start := time.Now()

	reqCtx, cancel := ctx, context.CancelFunc(func() {})
	if t.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, t.timeout)
	}
	defer cancel()

	req, err := t.buildRequest(reqCtx, endpoint, params)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	if corrID := CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.UpstreamDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.UpstreamDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())

	if err := handleErrorResponse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func decode(body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (t *transport) buildRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(t.apiURL + "/" + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("appid", t.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (t *transport) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	return strings.Contains(err.Error(), "timeout")
}

func (t *transport) calculateBackoff(attempt int) time.Duration {
	delay := float64(t.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if t.retryMaxDelay > 0 && delay > float64(t.retryMaxDelay) {
		delay = float64(t.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: invalid API key", ErrInvalidAPIKey)
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrLocationNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

type correlationIDKey struct{}

// WithCorrelationID returns ctx carrying id, forwarded upstream as X-Correlation-ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the id attached by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
