package usecase

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/last9death/maturmarket/internal/infra/ratelimit"
)

// limiterAllows asks the limiter and fails open on limiter errors: a broken
// Redis must not take the bot down with it.
func limiterAllows(ctx context.Context, lim ratelimit.Limiter, key string, limit int, window time.Duration, log *zerolog.Logger) bool {
	ok, err := lim.Allow(ctx, key, limit, window)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
		return true
	}
	return ok
}

// politeDelay sleeps a random duration in [min, max] so outbound requests do
// not look machine-gunned. Returns early when ctx is done.
func politeDelay(ctx context.Context, min, max time.Duration) error {
	if max <= 0 {
		return nil
	}
	d := min
	if span := max - min; span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
