// Package kvstore is the durable key-value layer behind the city and preference stores.
// Values are opaque byte blobs; callers own serialization.
package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/kjstillabower/skyhue-weather/internal/observability"
)

// Store persists whole-document values under string keys.
// Get returns (nil, false, nil) on a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendMemcached = "memcached"
)

var ErrUnknownBackend = errors.New("unknown store backend")

// instrumented records operation counts and latency for any backend.
type instrumented struct {
	Store
	backend string
}

// Instrument wraps s so each operation is recorded under the given backend label.
func Instrument(s Store, backend string) Store {
	return &instrumented{Store: s, backend: backend}
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	v, ok, err := s.Store.Get(ctx, key)
	observability.RecordStoreOp(s.backend, "get", err, time.Since(start).Seconds())
	return v, ok, err
}

func (s *instrumented) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.Store.Set(ctx, key, value)
	observability.RecordStoreOp(s.backend, "set", err, time.Since(start).Seconds())
	return err
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.Store.Delete(ctx, key)
	observability.RecordStoreOp(s.backend, "delete", err, time.Since(start).Seconds())
	return err
}
