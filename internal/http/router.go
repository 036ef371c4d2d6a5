package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/skyhue-weather/internal/observability"
)

// RouterOptions configures the middleware around the API routes.
type RouterOptions struct {
	RequestTimeout time.Duration
	// Limiter is shared by all API routes; nil disables rate limiting.
	Limiter *rate.Limiter
	Logger  *zap.Logger
}

// NewRouter registers the gateway routes. /health and /metrics skip the rate
// limiter and request timeout.
func NewRouter(h *Handler, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(opts.Logger))
	r.Use(MetricsMiddleware)

	r.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(RateLimitMiddleware(opts.Limiter))
	if opts.RequestTimeout > 0 {
		api.Use(TimeoutMiddleware(opts.RequestTimeout))
	}

	api.HandleFunc("/weather", h.GetWeather).Methods(http.MethodGet)
	api.HandleFunc("/search", h.SearchCities).Methods(http.MethodGet)
	api.HandleFunc("/cities", h.ListCities).Methods(http.MethodGet)
	api.HandleFunc("/cities", h.AddCity).Methods(http.MethodPost)
	api.HandleFunc("/cities/refresh", h.RefreshCities).Methods(http.MethodPost)
	api.HandleFunc("/cities/current", h.SelectCity).Methods(http.MethodPut)
	api.HandleFunc("/cities/{id}", h.RemoveCity).Methods(http.MethodDelete)
	api.HandleFunc("/location", h.UseLocation).Methods(http.MethodPost)
	api.HandleFunc("/preferences", h.GetPreferences).Methods(http.MethodGet)
	api.HandleFunc("/preferences", h.PutPreferences).Methods(http.MethodPut)
	return r
}
