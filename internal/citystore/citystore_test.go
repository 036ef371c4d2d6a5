package citystore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/skyhue-weather/internal/kvstore"
	"github.com/kjstillabower/skyhue-weather/internal/models"
)

var (
	paris = models.SavedCity{ID: "48.8566_2.3522", Name: "Paris", Country: "FR", Lat: 48.8566, Lon: 2.3522}
	tokyo = models.SavedCity{ID: "35.6762_139.6503", Name: "Tokyo", Country: "JP", Lat: 35.6762, Lon: 139.6503}
	here  = models.SavedCity{ID: models.CurrentLocationID, Name: "Boulder", State: "Colorado", Country: "US", Lat: 40.015, Lon: -105.2705}
)

// faultyKV fails the operations named in its fields.
type faultyKV struct {
	*kvstore.MemoryStore
	getErr error
	setErr error
	delErr error
}

func (f *faultyKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *faultyKV) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *faultyKV) Delete(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	return f.MemoryStore.Delete(ctx, key)
}

func TestStore_LoadEmpty(t *testing.T) {
	s := New(kvstore.NewMemoryStore(), nil)
	cities := s.Load(context.Background())
	assert.NotNil(t, cities)
	assert.Empty(t, cities)
}

func TestStore_AddLoadRemove(t *testing.T) {
	ctx := context.Background()
	s := New(kvstore.NewMemoryStore(), nil)

	got, err := s.Add(ctx, paris)
	require.NoError(t, err)
	assert.Equal(t, []models.SavedCity{paris}, got)

	assert.Equal(t, []models.SavedCity{paris}, s.Load(ctx))

	got, err = s.Remove(ctx, paris.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, s.Load(ctx))
}

func TestStore_AddIsIdempotentByCoordinates(t *testing.T) {
	ctx := context.Background()
	s := New(kvstore.NewMemoryStore(), nil)

	_, err := s.Add(ctx, paris)
	require.NoError(t, err)

	renamed := paris
	renamed.ID = "other-id"
	renamed.Name = "Paris, again"
	got, err := s.Add(ctx, renamed)
	require.NoError(t, err)
	assert.Equal(t, []models.SavedCity{paris}, got)

	got, err = s.Add(ctx, tokyo)
	require.NoError(t, err)
	assert.Equal(t, []models.SavedCity{paris, tokyo}, got)
}

func TestStore_RemoveUnknownID(t *testing.T) {
	ctx := context.Background()
	s := New(kvstore.NewMemoryStore(), nil)
	_, err := s.Add(ctx, paris)
	require.NoError(t, err)

	got, err := s.Remove(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, []models.SavedCity{paris}, got)
}

func TestStore_ReplaceCurrentLocation(t *testing.T) {
	ctx := context.Background()
	s := New(kvstore.NewMemoryStore(), nil)
	_, err := s.Add(ctx, paris)
	require.NoError(t, err)
	_, err = s.Add(ctx, tokyo)
	require.NoError(t, err)

	got, err := s.ReplaceCurrentLocation(ctx, here)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].IsCurrentLocation, "flag is forced on")
	assert.Equal(t, here.Name, got[0].Name)
	assert.Equal(t, []models.SavedCity{paris, tokyo}, got[1:])

	moved := here
	moved.Name = "Denver"
	moved.Lat, moved.Lon = 39.7392, -104.9903
	got, err = s.ReplaceCurrentLocation(ctx, moved)
	require.NoError(t, err)
	require.Len(t, got, 3)

	flagged := 0
	for _, c := range s.Load(ctx) {
		if c.IsCurrentLocation {
			flagged++
		}
	}
	assert.Equal(t, 1, flagged)
	assert.Equal(t, "Denver", got[0].Name)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	s := New(kv, nil)
	_, err := s.Add(ctx, paris)
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))
	_, ok, err := kv.Get(ctx, Key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s.Load(ctx))
}

func TestStore_ReadFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.ErrorLevel)

	kv := &faultyKV{MemoryStore: kvstore.NewMemoryStore(), getErr: errors.New("io error")}
	s := New(kv, zap.New(core))
	assert.Empty(t, s.Load(ctx))
	assert.Equal(t, 1, logs.FilterMessage("load cities").Len())

	corrupt := kvstore.NewMemoryStore()
	require.NoError(t, corrupt.Set(ctx, Key, []byte("{not json")))
	assert.Empty(t, New(corrupt, nil).Load(ctx))

	// A corrupt document is replaced on the next write.
	got, err := New(corrupt, nil).Add(ctx, tokyo)
	require.NoError(t, err)
	assert.Equal(t, []models.SavedCity{tokyo}, got)
}

func TestStore_WriteFailuresSurface(t *testing.T) {
	ctx := context.Background()
	diskFull := errors.New("disk full")
	kv := &faultyKV{MemoryStore: kvstore.NewMemoryStore(), setErr: diskFull, delErr: diskFull}
	s := New(kv, nil)

	_, err := s.Add(ctx, paris)
	assert.ErrorIs(t, err, ErrStorageWrite)
	assert.ErrorIs(t, err, diskFull)

	_, err = s.Remove(ctx, paris.ID)
	assert.ErrorIs(t, err, ErrStorageWrite)

	_, err = s.ReplaceCurrentLocation(ctx, here)
	assert.ErrorIs(t, err, ErrStorageWrite)

	assert.ErrorIs(t, s.Clear(ctx), ErrStorageWrite)
}

func TestStore_PersistsJSONShape(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	s := New(kv, nil)
	_, err := s.ReplaceCurrentLocation(ctx, here)
	require.NoError(t, err)

	raw, _, err := kv.Get(ctx, Key)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"current_location","name":"Boulder","state":"Colorado","country":"US","lat":40.015,"lon":-105.2705,"isCurrentLocation":true}]`, string(raw))
}
