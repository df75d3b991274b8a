package safety

import (
	"context"
	"fmt"
	"time"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// RunWithTimeout executes a CPU-bound stage under a wall-clock budget.
// The stage receives a derived context and is expected to poll it at its
// loop boundaries (see Checkpoint). On expiry the stage's partial result is
// discarded and a timeout-specific error is returned.
func RunWithTimeout[T any](ctx context.Context, budget time.Duration, stage func(context.Context) (T, error)) (T, error) {
	var zero T

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type outcome struct {
		result T
		err    error
	}
	done := make(chan outcome, 1)

	start := time.Now()
	go func() {
		result, err := stage(ctx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if ctx.Err() != nil {
				return zero, timeoutError(start)
			}
			return zero, out.err
		}
		return out.result, nil
	case <-ctx.Done():
		return zero, timeoutError(start)
	}
}

// Checkpoint is the cooperative cancellation check for CPU-bound loops.
// Call it at iteration boundaries; it converts an expired context into the
// typed timeout error.
func Checkpoint(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return domain.ErrOperationTimeout
	default:
		return nil
	}
}

func timeoutError(start time.Time) error {
	return &domain.CoreError{
		Code:    domain.ErrOperationTimeout.Code,
		Message: fmt.Sprintf("%s after %s", domain.ErrOperationTimeout.Message, time.Since(start).Round(time.Millisecond)),
	}
}
