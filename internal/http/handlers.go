package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/skyhue-weather/internal/citystore"
	"github.com/kjstillabower/skyhue-weather/internal/client"
	"github.com/kjstillabower/skyhue-weather/internal/models"
	"github.com/kjstillabower/skyhue-weather/internal/observability"
	"github.com/kjstillabower/skyhue-weather/internal/preferences"
	"github.com/kjstillabower/skyhue-weather/internal/session"
	"github.com/kjstillabower/skyhue-weather/internal/validation"
	"github.com/kjstillabower/skyhue-weather/internal/weather"
)

// CitySearcher is the geocoding surface the gateway needs.
type CitySearcher interface {
	Search(ctx context.Context, query string) ([]models.CityCandidate, error)
}

// HealthChecks are optional probes reported by GET /health. Nil checks are skipped.
type HealthChecks struct {
	Store      func(ctx context.Context) error
	WeatherAPI func(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	fetcher  weather.Fetcher
	searcher CitySearcher
	session  *session.Session
	units    string
	health   HealthChecks
	logger   *zap.Logger

	shuttingDown     atomic.Bool
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. units is the default unit system for GET /weather.
func NewHandler(
	fetcher weather.Fetcher,
	searcher CitySearcher,
	sess *session.Session,
	units string,
	health HealthChecks,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		fetcher:  fetcher,
		searcher: searcher,
		session:  sess,
		units:    units,
		health:   health,
		logger:   observability.OrNop(logger),
	}
}

// BeginShutdown makes /health report shutting-down so load balancers drain traffic.
func (h *Handler) BeginShutdown() {
	h.shuttingDown.Store(true)
}

// GetWeather handles GET /weather?lat&lon&units.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, err := validation.ParseCoordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return
	}
	units := q.Get("units")
	if units == "" {
		units = h.units
	}
	if units != client.UnitsImperial && units != client.UnitsMetric {
		writeError(w, r, http.StatusBadRequest, "INVALID_UNITS", "units must be imperial or metric")
		return
	}

	snap, err := h.fetcher.Fetch(r.Context(), lat, lon, units)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// SearchCities handles GET /search?q.
func (h *Handler) SearchCities(w http.ResponseWriter, r *http.Request) {
	query, err := validation.ValidateQuery(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	cities, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

type citiesResponse struct {
	Cities          []models.CityWithWeather `json:"cities"`
	Current         int                      `json:"current"`
	TemperatureUnit models.TemperatureUnit   `json:"temperatureUnit"`
}

func (h *Handler) citiesResponse() citiesResponse {
	_, current, _ := h.session.Current()
	return citiesResponse{
		Cities:          h.session.Cities(),
		Current:         current,
		TemperatureUnit: h.session.Unit(),
	}
}

// ListCities handles GET /cities.
func (h *Handler) ListCities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.citiesResponse())
}

// AddCity handles POST /cities with a search candidate as the body.
func (h *Handler) AddCity(w http.ResponseWriter, r *http.Request) {
	var cand models.CityCandidate
	if err := json.NewDecoder(r.Body).Decode(&cand); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "body must be a city candidate")
		return
	}
	if cand.Name == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "name is required")
		return
	}
	if err := validation.CheckCoordinates(cand.Lat, cand.Lon); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return
	}

	idx, err := h.session.AddCity(r.Context(), cand.ToSavedCity())
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	resp := h.citiesResponse()
	resp.Current = idx
	writeJSON(w, http.StatusCreated, resp)
}

// RemoveCity handles DELETE /cities/{id}.
func (h *Handler) RemoveCity(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.session.RemoveCity(r.Context(), id); err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.citiesResponse())
}

// SelectCity handles PUT /cities/current with {"index": n}.
func (h *Handler) SelectCity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Index == nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "index is required")
		return
	}
	if err := h.session.Select(*body.Index); err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.citiesResponse())
}

// RefreshCities handles POST /cities/refresh. With ?index=n only that city is
// refreshed and a failure is reported; otherwise every city is refreshed and
// per-city failures are only counted.
func (h *Handler) RefreshCities(w http.ResponseWriter, r *http.Request) {
	if s := r.URL.Query().Get("index"); s != "" {
		idx, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_INDEX", "index must be an integer")
			return
		}
		if err := h.session.Refresh(r.Context(), idx); err != nil {
			writeSessionError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, h.citiesResponse())
		return
	}

	res := h.session.RefreshAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":          res,
		"cities":          h.session.Cities(),
		"temperatureUnit": h.session.Unit(),
	})
}

// UseLocation handles POST /location with the device coordinates.
func (h *Handler) UseLocation(w http.ResponseWriter, r *http.Request) {
	var pos session.Coordinates
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "body must be {lat, lon}")
		return
	}
	if err := validation.CheckCoordinates(pos.Lat, pos.Lon); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return
	}

	city, err := h.session.UseDeviceLocation(r.Context(), session.StaticLocator(pos))
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, city)
}

// GetPreferences handles GET /preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, preferences.Preferences{TemperatureUnit: h.session.Unit()})
}

// PutPreferences handles PUT /preferences.
func (h *Handler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TemperatureUnit string `json:"temperatureUnit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "body must be {temperatureUnit}")
		return
	}
	unit, err := models.ParseTemperatureUnit(body.TemperatureUnit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_UNIT", "temperatureUnit must be F or C")
		return
	}
	if err := h.session.SetUnit(r.Context(), unit); err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preferences.Preferences{TemperatureUnit: unit})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
	checks     map[string]string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "skyhue-weather",
		"version":   "dev",
		"checks":    result.checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates shutting-down, then the store, then the weather API.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	checks := make(map[string]string)
	if h.shuttingDown.Load() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal", checks}
	}

	result := healthResult{"healthy", http.StatusOK, "", checks}
	probe := func(name string, check func(context.Context) error) {
		if check == nil {
			return
		}
		if err := check(ctx); err != nil {
			checks[name] = "unhealthy"
			if result.reason == "" {
				result = healthResult{"degraded", http.StatusServiceUnavailable, name + "_unhealthy", checks}
			}
			return
		}
		checks[name] = "healthy"
	}
	probe("store", h.health.Store)
	probe("weatherApi", h.health.WeatherAPI)
	return result
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error body with code, message and the request's correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": client.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError maps upstream failures to responses. The cause is logged at DEBUG.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context(), nil).Debug("upstream error", zap.Error(err))

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Upstream request timed out")
	case errors.Is(err, client.ErrLocationNotFound):
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Location not found")
	case errors.Is(err, client.ErrGeocodingFailed):
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to search locations")
	default:
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch weather data")
	}
}

// writeSessionError maps session and store errors to responses.
func writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrCannotRemoveCurrentLocation):
		writeError(w, r, http.StatusConflict, "CURRENT_LOCATION", err.Error())
	case errors.Is(err, session.ErrCityNotFound):
		writeError(w, r, http.StatusNotFound, "CITY_NOT_FOUND", err.Error())
	case errors.Is(err, session.ErrIndexOutOfRange):
		writeError(w, r, http.StatusBadRequest, "INVALID_INDEX", err.Error())
	case errors.Is(err, session.ErrLocationPermissionDenied):
		writeError(w, r, http.StatusForbidden, "PERMISSION_DENIED", err.Error())
	case errors.Is(err, citystore.ErrStorageWrite), errors.Is(err, preferences.ErrStorageWrite):
		observability.LoggerFromContext(r.Context(), nil).Error("storage write failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "STORAGE_ERROR", "Unable to save changes")
	default:
		writeServiceError(w, r, err)
	}
}
