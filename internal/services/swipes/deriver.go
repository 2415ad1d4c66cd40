package swipes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/glimmerapp/backend/internal/domain/identity"
)

// Deriver is the mutual-match rule. It runs once per like, synchronously on
// the write path, inside the swipe's transaction.
type Deriver struct {
	swipes  SwipeStore
	matches MatchStore
}

func NewDeriver(swipes SwipeStore, matches MatchStore) *Deriver {
	return &Deriver{swipes: swipes, matches: matches}
}

// DeriveOnLike materializes the match for (actorID, targetID) when the
// reverse like already exists. The returned bool reports whether this call
// created the row; a concurrent creation for the same pair yields false, not
// an error, because the match insert is idempotent on the canonical key.
func (d *Deriver) DeriveOnLike(ctx context.Context, tx pgx.Tx, actorID, targetID uuid.UUID, now time.Time) (bool, error) {
	if d.swipes == nil || d.matches == nil {
		return false, fmt.Errorf("deriver dependencies are not configured")
	}

	reciprocal, err := d.swipes.ReverseLikeExists(ctx, tx, actorID, targetID)
	if err != nil {
		return false, fmt.Errorf("lookup reciprocal like: %w", err)
	}
	if !reciprocal {
		return false, nil
	}

	pair, err := identity.PairKey(actorID, targetID)
	if err != nil {
		return false, fmt.Errorf("compute pair key: %w", err)
	}

	created, err := d.matches.CreateIfAbsent(ctx, tx, pair, now)
	if err != nil {
		return false, fmt.Errorf("create match for pair: %w", err)
	}

	return created, nil
}
