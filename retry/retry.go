// Package retry repeats an operation while it reports a pending condition.
// The gateway uses it to wait for transaction receipts; user actions themselves
// are never retried.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config holds polling configuration.
type Config struct {
	MaxAttempts  int           // Maximum number of attempts; 0 means until ctx is done
	InitialDelay time.Duration // Delay before the second attempt
	MaxDelay     time.Duration // Upper bound for the delay between attempts
	Multiplier   float64       // Delay growth factor; 1 polls at a fixed interval
}

// ReceiptPolling waits for a mined transaction at a fixed one-second interval
// with no attempt limit. Celo produces a block roughly every second.
var ReceiptPolling = Config{
	MaxAttempts:  0,
	InitialDelay: time.Second,
	MaxDelay:     time.Second,
	Multiplier:   1,
}

// IsPending reports whether an error means "not yet, try again".
type IsPending func(error) bool

// Do calls fn until it succeeds, returns an error isPending rejects, runs out
// of attempts or ctx is done.
func Do[T any](ctx context.Context, config Config, isPending IsPending, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; config.MaxAttempts <= 0 || attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("context cancelled: %w", err)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isPending(err) {
			return zero, err
		}

		if config.MaxAttempts > 0 && attempt == config.MaxAttempts-1 {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
			delay = nextDelay(delay, config)
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("context cancelled: %w", ctx.Err())
		}
	}

	return zero, fmt.Errorf("max attempts exceeded: %w", lastErr)
}

func nextDelay(delay time.Duration, config Config) time.Duration {
	if config.Multiplier > 1 {
		delay = time.Duration(float64(delay) * config.Multiplier)
	}
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}
