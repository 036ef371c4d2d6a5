// Package preferences persists user display preferences as one JSON document.
package preferences

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

// Key is the storage key of the preference document.
const Key = "@sky_hue_preferences"

const temperatureUnitField = "temperatureUnit"

var ErrStorageWrite = errors.New("preference storage write failed")

type Preferences struct {
	TemperatureUnit models.TemperatureUnit `json:"temperatureUnit"`
}

// Defaults apply at first run and whenever the stored document cannot be read.
func Defaults() Preferences {
	return Preferences{TemperatureUnit: models.DefaultTemperatureUnit}
}

type Store struct {
	kv     kvstore.Store
	logger *zap.Logger
}

func New(kv kvstore.Store, logger *zap.Logger) *Store {
	return &Store{kv: kv, logger: observability.OrNop(logger)}
}

// document reads the stored fields, keeping ones this version does not know.
func (s *Store) document(ctx context.Context) map[string]json.RawMessage {
	doc := make(map[string]json.RawMessage)
	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		s.logger.Error("load preferences", zap.Error(err))
		return doc
	}
	if !ok {
		return doc
	}
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		s.logger.Error("decode preferences", zap.Error(err))
		return make(map[string]json.RawMessage)
	}
	return doc
}

// Load returns stored preferences, with defaults for anything missing or invalid.
func (s *Store) Load(ctx context.Context) Preferences {
	prefs := Defaults()
	doc := s.document(ctx)

	if v, ok := doc[temperatureUnitField]; ok {
		var unit string
		if err := json.Unmarshal(v, &unit); err == nil {
			if parsed, err := models.ParseTemperatureUnit(unit); err == nil {
				prefs.TemperatureUnit = parsed
			}
		}
	}
	return prefs
}

// Save writes prefs over the stored document. Fields unknown to Preferences survive.
func (s *Store) Save(ctx context.Context, prefs Preferences) error {
	doc := s.document(ctx)
	unit, err := json.Marshal(prefs.TemperatureUnit)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	doc[temperatureUnitField] = unit

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	if err := s.kv.Set(ctx, Key, raw); err != nil {
		s.logger.Error("save preferences", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}

func (s *Store) LoadTemperatureUnit(ctx context.Context) models.TemperatureUnit {
	return s.Load(ctx).TemperatureUnit
}

// SaveTemperatureUnit is a read-modify-write of the whole document.
func (s *Store) SaveTemperatureUnit(ctx context.Context, unit models.TemperatureUnit) error {
	prefs := s.Load(ctx)
	prefs.TemperatureUnit = unit
	return s.Save(ctx, prefs)
}
