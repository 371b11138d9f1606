package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Do runs fn until it succeeds, permanent reports the error as not worth
// retrying, the policy is exhausted or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, logger *slog.Logger, op string, permanent func(error) bool, fn func(context.Context) error) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying operation", slog.String("operation", op), slog.Int("attempt", attempt))
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if permanent != nil && permanent(err) {
			return err
		}
		if attempt == p.MaxRetries {
			break
		}
		timer := time.NewTimer(p.Delay(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s canceled after %d attempts: %w", op, attempt+1, lastErr)
		case <-timer.C:
		}
	}
	if p.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("%s failed after retries: %w", op, lastErr)
}
