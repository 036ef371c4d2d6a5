// Package session holds the in-memory list of cities with their weather and
// the currently selected city.
//
// The Session is the only writer of the city and preference stores. It holds a
// mutex around every list mutation and store call, and releases it during
// network fetches so a slow upstream never blocks readers.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/skyhue-weather/internal/citystore"
	"github.com/kjstillabower/skyhue-weather/internal/models"
	"github.com/kjstillabower/skyhue-weather/internal/observability"
	"github.com/kjstillabower/skyhue-weather/internal/preferences"
	"github.com/kjstillabower/skyhue-weather/internal/weather"
)

var (
	ErrCannotRemoveCurrentLocation = errors.New("current location cannot be removed")
	ErrIndexOutOfRange             = errors.New("city index out of range")
	ErrCityNotFound                = errors.New("city not found")
)

// CurrentLocationName labels the device location when reverse geocoding finds nothing.
const CurrentLocationName = "Current Location"

// ReverseGeocoder resolves coordinates to a place name. Nil, nil means no match.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*models.CityCandidate, error)
}

// RefreshResult summarizes one RefreshAll batch.
type RefreshResult struct {
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
}

type Session struct {
	fetcher  weather.Fetcher
	geocoder ReverseGeocoder
	cities   *citystore.Store
	prefs    *preferences.Store
	units    string
	logger   *zap.Logger

	mu      sync.Mutex
	list    []models.CityWithWeather
	current int
	unit    models.TemperatureUnit
}

// New builds a Session. units is the provider unit system used for every fetch.
func New(fetcher weather.Fetcher, geocoder ReverseGeocoder, cities *citystore.Store, prefs *preferences.Store, units string, logger *zap.Logger) *Session {
	return &Session{
		fetcher:  fetcher,
		geocoder: geocoder,
		cities:   cities,
		prefs:    prefs,
		units:    units,
		logger:   observability.OrNop(logger),
		list:     []models.CityWithWeather{},
		unit:     models.DefaultTemperatureUnit,
	}
}

// Start loads the unit preference and saved cities, then refreshes them all.
func (s *Session) Start(ctx context.Context) RefreshResult {
	s.mu.Lock()
	s.unit = s.prefs.LoadTemperatureUnit(ctx)
	s.list = rebuild(s.cities.Load(ctx), nil)
	s.current = 0
	count := len(s.list)
	s.mu.Unlock()

	s.logger.Info("session started", zap.Int("cities", count), zap.String("unit", string(s.Unit())))
	return s.RefreshAll(ctx)
}

// Cities returns a copy of the list in display order.
func (s *Session) Cities() []models.CityWithWeather {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CityWithWeather(nil), s.list...)
}

// Current returns the selected city, or false when the list is empty.
func (s *Session) Current() (models.CityWithWeather, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.list) == 0 {
		return models.CityWithWeather{}, 0, false
	}
	return s.list[s.current], s.current, true
}

func (s *Session) Select(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.list) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	s.current = index
	return nil
}

func (s *Session) Unit() models.TemperatureUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unit
}

// SetUnit persists unit first; the in-memory value changes only if the write succeeds.
func (s *Session) SetUnit(ctx context.Context, unit models.TemperatureUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prefs.SaveTemperatureUnit(ctx, unit); err != nil {
		return err
	}
	s.unit = unit
	return nil
}

// AddCity saves city, fetches its weather and selects it. A city already in
// the list (same coordinates) is selected without being saved again. A failed
// weather fetch leaves the city in the list without weather.
func (s *Session) AddCity(ctx context.Context, city models.SavedCity) (int, error) {
	s.mu.Lock()
	if i := s.indexByCoordinates(city); i >= 0 {
		s.current = i
		s.mu.Unlock()
		return i, nil
	}
	if _, err := s.cities.Add(ctx, city); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.mu.Unlock()

	entry := models.CityWithWeather{SavedCity: city}
	snap, err := s.fetcher.Fetch(ctx, city.Lat, city.Lon, s.units)
	if err != nil {
		s.logger.Warn("weather for new city unavailable", zap.String("city", city.Name), zap.Error(err))
	} else {
		entry = entry.WithSnapshot(snap)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A concurrent rebuild may already have listed the city without weather.
	if i := s.indexByCoordinates(city); i >= 0 {
		if err == nil {
			s.list[i] = s.list[i].WithSnapshot(snap)
		}
		s.current = i
		return i, nil
	}
	s.list = append(s.list, entry)
	s.current = len(s.list) - 1
	return s.current, nil
}

// RemoveCity deletes a saved city. The selection follows the previously
// selected city when it survives, otherwise it is clamped into range.
func (s *Session) RemoveCity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexByID(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCityNotFound, id)
	}
	if s.list[i].IsCurrentLocation || id == models.CurrentLocationID {
		return ErrCannotRemoveCurrentLocation
	}

	selectedID := s.list[s.current].ID
	saved, err := s.cities.Remove(ctx, id)
	if err != nil {
		return err
	}
	s.list = rebuild(saved, s.list)
	s.reselect(selectedID)
	return nil
}

// UseDeviceLocation locates the device, names the place and installs it as the
// first city. Permission errors from the locator are returned unchanged.
func (s *Session) UseDeviceLocation(ctx context.Context, locator Locator) (models.CityWithWeather, error) {
	pos, err := locator.Locate(ctx)
	if err != nil {
		return models.CityWithWeather{}, err
	}

	city := models.SavedCity{
		ID:   models.CurrentLocationID,
		Name: CurrentLocationName,
		Lat:  pos.Lat,
		Lon:  pos.Lon,
	}
	place, err := s.geocoder.Reverse(ctx, pos.Lat, pos.Lon)
	if err != nil {
		s.logger.Warn("reverse geocoding failed", zap.Error(err))
	}
	if place != nil {
		city.Name, city.State, city.Country = place.Name, place.State, place.Country
	}

	s.mu.Lock()
	saved, err := s.cities.ReplaceCurrentLocation(ctx, city)
	if err != nil {
		s.mu.Unlock()
		return models.CityWithWeather{}, err
	}
	s.list = rebuild(saved, s.list)
	s.current = 0
	s.mu.Unlock()

	if err := s.refreshCity(ctx, saved[0]); err != nil {
		s.logger.Warn("weather for current location unavailable", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexByID(models.CurrentLocationID); i >= 0 {
		return s.list[i], nil
	}
	return models.CityWithWeather{SavedCity: saved[0]}, nil
}

// Refresh fetches weather for the city at index. On failure the city keeps its
// previous weather and the error is returned.
func (s *Session) Refresh(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.list) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	city := s.list[index].SavedCity
	s.mu.Unlock()

	return s.refreshCity(ctx, city)
}

// RefreshAll fetches every city concurrently. A city whose fetch fails keeps
// its previous weather; the batch itself never fails.
func (s *Session) RefreshAll(ctx context.Context) RefreshResult {
	start := time.Now()
	observability.RefreshBatchesTotal.Inc()

	s.mu.Lock()
	targets := make([]models.SavedCity, len(s.list))
	for i, c := range s.list {
		targets[i] = c.SavedCity
	}
	s.mu.Unlock()

	var (
		wg     sync.WaitGroup
		failed = make(chan error, len(targets))
	)
	for _, city := range targets {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.refreshCity(ctx, city); err != nil {
				failed <- fmt.Errorf("refresh %s: %w", city.ID, err)
			}
		}()
	}
	wg.Wait()
	close(failed)

	res := RefreshResult{Refreshed: len(targets)}
	for err := range failed {
		res.Failed++
		res.Refreshed--
		observability.RefreshCityFailuresTotal.Inc()
		s.logger.Warn("city refresh failed", zap.Error(err))
	}

	duration := time.Since(start).Seconds()
	observability.RefreshDuration.Observe(duration)
	s.logger.Info("cities refreshed",
		zap.Int("cities", len(targets)),
		zap.Int("errors", res.Failed),
		zap.Float64("duration_seconds", duration),
	)
	return res
}

// RefreshPeriodic calls RefreshAll every interval until ctx is done.
// Start has already done the first refresh, so the first tick waits a full interval.
func (s *Session) RefreshPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if res := s.RefreshAll(ctx); res.Failed > 0 {
				s.logger.Warn("periodic refresh incomplete", zap.Int("failed", res.Failed))
			}
		}
	}
}

// refreshCity fetches weather for city and stores it on the matching list entry,
// if that entry still exists with the same coordinates.
func (s *Session) refreshCity(ctx context.Context, city models.SavedCity) error {
	snap, err := s.fetcher.Fetch(ctx, city.Lat, city.Lon, s.units)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexByID(city.ID); i >= 0 && s.list[i].SameCoordinates(city) {
		s.list[i] = s.list[i].WithSnapshot(snap)
	}
	return nil
}

func (s *Session) indexByID(id string) int {
	for i, c := range s.list {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) indexByCoordinates(city models.SavedCity) int {
	for i, c := range s.list {
		if c.SameCoordinates(city) {
			return i
		}
	}
	return -1
}

func (s *Session) reselect(id string) {
	if i := s.indexByID(id); i >= 0 {
		s.current = i
		return
	}
	s.current = max(0, min(s.current, len(s.list)-1))
}

// rebuild lays saved records over the previous list, keeping weather for
// records whose id and coordinates are unchanged.
func rebuild(saved []models.SavedCity, prev []models.CityWithWeather) []models.CityWithWeather {
	byID := make(map[string]models.CityWithWeather, len(prev))
	for _, c := range prev {
		byID[c.ID] = c
	}

	out := make([]models.CityWithWeather, 0, len(saved))
	for _, city := range saved {
		entry := models.CityWithWeather{SavedCity: city}
		if old, ok := byID[city.ID]; ok && old.SameCoordinates(city) {
			entry.Temperature, entry.Condition, entry.Weather = old.Temperature, old.Condition, old.Weather
		}
		out = append(out, entry)
	}
	return out
}
