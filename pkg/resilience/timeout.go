package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// WithTimeout bounds fn to timeout (no bound if timeout <= 0). An expired
// call returns an error matching both apperrors.ErrTimeout and
// context.DeadlineExceeded, so HTTP callers map it to 504. fn keeps running
// in the background until it observes its cancelled context.
func WithTimeout(ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	bounded, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- fn(bounded) }()

	select {
	case err := <-result:
		return err
	case <-bounded.Done():
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s abandoned: %w", op, err)
	}
	slog.Debug("operation exceeded its budget", "op", op, "timeout", timeout)
	return fmt.Errorf("%s after %v: %w: %w", op, timeout, apperrors.ErrTimeout, context.DeadlineExceeded)
}
