// Package rate implements fixed-window throttling as an injectable
// capability. The window counter lives behind WindowStore so a single-node
// deployment can run on the in-process store and a multi-instance one on the
// redis store without touching call sites. This is best-effort UX throttling,
// not an abuse-prevention boundary.
package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type Limiter struct {
	store     WindowStore
	scope     string
	perWindow int
	window    time.Duration
}

// NewLimiter builds a limiter for one operation scope (e.g. "swipes",
// "messages"). perWindow <= 0 disables the limiter.
func NewLimiter(store WindowStore, scope string, perWindow int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}

	return &Limiter{
		store:     store,
		scope:     scope,
		perWindow: perWindow,
		window:    window,
	}
}

// Allow consumes one unit of the user's budget. When the budget is exhausted
// it returns allowed=false plus the duration after which a retry can succeed.
func (l *Limiter) Allow(ctx context.Context, userID uuid.UUID) (time.Duration, bool, error) {
	if userID == uuid.Nil {
		return 0, false, fmt.Errorf("invalid user id")
	}
	if l.perWindow <= 0 {
		return 0, true, nil
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	count, ttl, err := l.store.IncrementWindow(ctx, l.key(userID), l.window)
	if err != nil {
		return 0, false, err
	}
	if count > int64(l.perWindow) {
		retryAfter := ttl
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		return retryAfter, false, nil
	}

	return 0, true, nil
}

func (l *Limiter) key(userID uuid.UUID) string {
	return "rate:" + l.scope + ":" + userID.String()
}
