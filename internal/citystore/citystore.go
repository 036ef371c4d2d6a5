// Package citystore persists the user's saved-city list as one JSON document.
//
// Every mutation is a whole-collection read-modify-write. The store does no
// locking; callers serialize their own calls.
package citystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/skyhue-weather/internal/kvstore"
	"github.com/kjstillabower/skyhue-weather/internal/models"
	"github.com/kjstillabower/skyhue-weather/internal/observability"
)

// Key is the storage key of the saved-city document.
const Key = "@sky_hue_cities"

// ErrStorageWrite wraps any failure to persist the list.
var ErrStorageWrite = errors.New("city storage write failed")

type Store struct {
	kv     kvstore.Store
	logger *zap.Logger
}

func New(kv kvstore.Store, logger *zap.Logger) *Store {
	return &Store{kv: kv, logger: observability.OrNop(logger)}
}

// Load returns the saved list in stored order. A missing document, a read
// error or a corrupt document all yield an empty list; errors are only logged.
func (s *Store) Load(ctx context.Context) []models.SavedCity {
	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		s.logger.Error("load cities", zap.Error(err))
		return []models.SavedCity{}
	}
	if !ok {
		return []models.SavedCity{}
	}

	var cities []models.SavedCity
	if err := json.Unmarshal(raw, &cities); err != nil {
		s.logger.Error("decode cities", zap.Error(err))
		return []models.SavedCity{}
	}
	if cities == nil {
		cities = []models.SavedCity{}
	}
	return cities
}

// Save replaces the stored list.
func (s *Store) Save(ctx context.Context, cities []models.SavedCity) error {
	if cities == nil {
		cities = []models.SavedCity{}
	}
	raw, err := json.Marshal(cities)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	if err := s.kv.Set(ctx, Key, raw); err != nil {
		s.logger.Error("save cities", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}

// Add appends city unless a record with the same coordinates exists, in which
// case the current list is returned and nothing is written.
func (s *Store) Add(ctx context.Context, city models.SavedCity) ([]models.SavedCity, error) {
	cities := s.Load(ctx)
	for _, c := range cities {
		if c.SameCoordinates(city) {
			return cities, nil
		}
	}

	updated := append(cities, city)
	if err := s.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Remove drops every record with the given id. Callers must not offer the
// current-location record for removal.
func (s *Store) Remove(ctx context.Context, id string) ([]models.SavedCity, error) {
	cities := s.Load(ctx)
	updated := make([]models.SavedCity, 0, len(cities))
	for _, c := range cities {
		if c.ID != id {
			updated = append(updated, c)
		}
	}
	if err := s.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// ReplaceCurrentLocation drops any flagged record and puts city first with the
// flag set. At most one flagged record exists afterwards, always at index 0.
func (s *Store) ReplaceCurrentLocation(ctx context.Context, city models.SavedCity) ([]models.SavedCity, error) {
	cities := s.Load(ctx)
	city.IsCurrentLocation = true

	updated := make([]models.SavedCity, 0, len(cities)+1)
	updated = append(updated, city)
	for _, c := range cities {
		if !c.IsCurrentLocation {
			updated = append(updated, c)
		}
	}
	if err := s.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Clear deletes the stored list.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, Key); err != nil {
		s.logger.Error("clear cities", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}
