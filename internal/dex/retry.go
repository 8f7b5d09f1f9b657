package dex

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds retries of chain reads. The delay doubles after every
// failed attempt.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Do runs fn and retries failures until the policy or ctx gives up.
func (p RetryPolicy) Do(ctx context.Context, logger *zap.Logger, op string, fn func(context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := p.Backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}
		logger.Debug("retrying chain call",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
