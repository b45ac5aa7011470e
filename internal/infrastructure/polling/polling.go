package polling

import (
	"context"
	"errors"
	"time"
)

const DefaultInterval = time.Second

// ErrTimeout is returned when the poll budget runs out before the check
// reports completion.
var ErrTimeout = errors.New("polling timed out")

// CheckFunc reports whether polling is finished. A non-nil error stops
// polling immediately.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Until calls check right away and then on every tick until it reports done,
// returns an error, ctx is cancelled or timeout elapses (timeout <= 0 means no
// limit).
func Until(ctx context.Context, interval, timeout time.Duration, check CheckFunc) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := check(ctx)
		if err != nil {
			if timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
				return ErrTimeout
			}
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			if timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
