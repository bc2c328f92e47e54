package artifact

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"

	"github.com/luxfi/substrate-mpc/pkg/ceremony"
	"github.com/luxfi/substrate-mpc/pkg/logger"
)

const DefaultPollInterval = 2 * time.Second

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// CollectWait polls Collect until the collection is complete or timeout
// elapses. Only ErrNotFound is retried; a zero timeout reads once.
func (s *Store) CollectWait(ctx context.Context, id ceremony.ID, key string, min int, timeout, interval time.Duration) ([][]byte, error) {
	if timeout <= 0 {
		return s.Collect(ctx, id, key, min)
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out [][]byte
	err := retry.Do(
		func() error {
			values, err := s.Collect(ctx, id, key, min)
			if err != nil {
				return err
			}
			out = values
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(timeout/interval)+1),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isNotFound),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("Waiting for artifacts", "ceremony", id, "key", key, "attempt", n+1, "reason", err.Error())
		}),
	)
	if err != nil {
		// A deadline hit while waiting still means the barrier is short.
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}
