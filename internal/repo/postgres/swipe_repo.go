package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glimmerapp/backend/internal/domain/enums"
)

var ErrSwipeExists = errors.New("swipe already exists")

type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

type SwipeRecord struct {
	ID        int64
	ActorID   uuid.UUID
	TargetID  uuid.UUID
	Decision  enums.SwipeDecision
	CreatedAt time.Time
}

// Create inserts the swipe once per (actor, target) pair. A repeated pair
// surfaces as ErrSwipeExists; the earlier row is never touched.
func (r *SwipeRepo) Create(ctx context.Context, tx pgx.Tx, actorID, targetID uuid.UUID, decision enums.SwipeDecision, now time.Time) (SwipeRecord, error) {
	if actorID == uuid.Nil || targetID == uuid.Nil || decision == "" {
		return SwipeRecord{}, fmt.Errorf("invalid swipe payload")
	}
	if tx == nil {
		return SwipeRecord{}, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec SwipeRecord
	var decisionValue string
	err := tx.QueryRow(ctx, `
INSERT INTO swipes (
	actor_id,
	target_id,
	decision,
	created_at
) VALUES ($1, $2, $3, $4)
ON CONFLICT (actor_id, target_id) DO NOTHING
RETURNING id, actor_id, target_id, decision, created_at
`, actorID, targetID, string(decision), now.UTC()).Scan(
		&rec.ID,
		&rec.ActorID,
		&rec.TargetID,
		&decisionValue,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SwipeRecord{}, ErrSwipeExists
		}
		return SwipeRecord{}, fmt.Errorf("create swipe: %w", err)
	}
	rec.Decision, err = enums.ParseSwipeDecision(decisionValue)
	if err != nil {
		return SwipeRecord{}, fmt.Errorf("scan swipe decision: %w", err)
	}

	return rec, nil
}

// ReverseLikeExists reports whether target already liked actor.
func (r *SwipeRepo) ReverseLikeExists(ctx context.Context, tx pgx.Tx, actorID, targetID uuid.UUID) (bool, error) {
	if actorID == uuid.Nil || targetID == uuid.Nil {
		return false, fmt.Errorf("invalid swipe lookup payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM swipes
WHERE actor_id = $1 AND target_id = $2 AND decision = 'like'
LIMIT 1
`, targetID, actorID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup reciprocal like: %w", err)
	}

	return true, nil
}
