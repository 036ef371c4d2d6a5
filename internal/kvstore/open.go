package kvstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	SQLitePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
}

// Open builds the configured backend, checks it is reachable and wraps it with metrics.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendMemory:
		s = NewMemoryStore()
	case BackendSQLite, "":
		cfg.Backend = BackendSQLite
		s, err = NewSQLiteStore(ctx, cfg.SQLitePath)
	case BackendRedis:
		s = NewRedisStore(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "skyhue:",
		})
	case BackendMemcached:
		s = NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("%s store unreachable: %w", cfg.Backend, err)
	}

	if logger != nil {
		logger.Info("store opened", zap.String("backend", cfg.Backend))
	}
	return Instrument(s, cfg.Backend), nil
}
