package billing

import (
	"context"
	"github.com/ZilDuck/membership-market/internal/entity"
	"go.uber.org/zap"
	"time"
)

// retry repeats fn while it fails transiently. Any other result is final.
func retry(ctx context.Context, delay time.Duration, op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !entity.IsTransient(err) {
			return err
		}

		zap.L().With(zap.Error(err), zap.String("op", op), zap.Int("attempt", attempt)).Warn("Billing: Transient failure, retrying")
		if werr := wait(ctx, delay); werr != nil {
			return werr
		}
	}
}

func wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
