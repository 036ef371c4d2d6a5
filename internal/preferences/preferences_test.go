package preferences

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/skyhue-weather/internal/kvstore"
	"github.com/kjstillabower/skyhue-weather/internal/models"
)

type brokenKV struct {
	*kvstore.MemoryStore
	getErr error
	setErr error
}

func (b *brokenKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b.getErr != nil {
		return nil, false, b.getErr
	}
	return b.MemoryStore.Get(ctx, key)
}

func (b *brokenKV) Set(ctx context.Context, key string, value []byte) error {
	if b.setErr != nil {
		return b.setErr
	}
	return b.MemoryStore.Set(ctx, key, value)
}

func TestStore_DefaultsToFahrenheit(t *testing.T) {
	s := New(kvstore.NewMemoryStore(), nil)
	assert.Equal(t, models.Fahrenheit, s.LoadTemperatureUnit(context.Background()))
	assert.Equal(t, Defaults(), s.Load(context.Background()))
}

func TestStore_SaveAndLoadUnit(t *testing.T) {
	ctx := context.Background()
	s := New(kvstore.NewMemoryStore(), nil)

	require.NoError(t, s.SaveTemperatureUnit(ctx, models.Celsius))
	assert.Equal(t, models.Celsius, s.LoadTemperatureUnit(ctx))

	require.NoError(t, s.SaveTemperatureUnit(ctx, models.Fahrenheit))
	assert.Equal(t, models.Fahrenheit, s.LoadTemperatureUnit(ctx))
}

func TestStore_PreservesUnknownFields(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, Key, []byte(`{"temperatureUnit":"F","windUnit":"kph","alerts":{"rain":true}}`)))

	s := New(kv, nil)
	require.NoError(t, s.SaveTemperatureUnit(ctx, models.Celsius))

	raw, _, err := kv.Get(ctx, Key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"temperatureUnit":"C","windUnit":"kph","alerts":{"rain":true}}`, string(raw))
}

func TestStore_InvalidStoredUnitFallsBack(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, Key, []byte(`{"temperatureUnit":"K"}`)))
	assert.Equal(t, models.Fahrenheit, New(kv, nil).LoadTemperatureUnit(ctx))

	require.NoError(t, kv.Set(ctx, Key, []byte(`not json`)))
	assert.Equal(t, models.Fahrenheit, New(kv, nil).LoadTemperatureUnit(ctx))
}

func TestStore_ReadFailureYieldsDefaults(t *testing.T) {
	kv := &brokenKV{MemoryStore: kvstore.NewMemoryStore(), getErr: errors.New("io error")}
	assert.Equal(t, Defaults(), New(kv, nil).Load(context.Background()))
}

func TestStore_WriteFailureSurfaces(t *testing.T) {
	diskFull := errors.New("disk full")
	kv := &brokenKV{MemoryStore: kvstore.NewMemoryStore(), setErr: diskFull}

	err := New(kv, nil).SaveTemperatureUnit(context.Background(), models.Celsius)
	assert.ErrorIs(t, err, ErrStorageWrite)
	assert.ErrorIs(t, err, diskFull)
}
