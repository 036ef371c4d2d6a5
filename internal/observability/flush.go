package observability

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"go.uber.org/zap"
)

// Closer is a resource released at shutdown (store connections, etc).
type Closer interface {
	Close() error
}

// FlushTelemetry releases the given resources and then syncs the logger.
// Resource close errors are logged; only a log flush failure is returned.
// Sync on a pipe or terminal fails with EINVAL or ENOTTY; that is ignored.
func FlushTelemetry(ctx context.Context, logger *zap.Logger, closers ...Closer) error {
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && logger != nil {
			logger.Error("close resource", zap.Error(err))
		}
	}
	if logger != nil {
		if err := logger.Sync(); err != nil && !unsyncable(err) {
			return fmt.Errorf("flush logs: %w", err)
		}
	}
	return nil
}

func unsyncable(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}
