package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter answers whether one more event is allowed for key within window.
// Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

func UserKey(tgID int64) string {
	return fmt.Sprintf("rate_limit:user:%d", tgID)
}

func DomainKey(host string) string {
	return fmt.Sprintf("rate_limit:domain:%s", host)
}
