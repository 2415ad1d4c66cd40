package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glimmerapp/backend/internal/domain/identity"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

type MatchRecord struct {
	ID        uuid.UUID
	LowID     uuid.UUID
	HighID    uuid.UUID
	CreatedAt time.Time
}

type MatchProfileRecord struct {
	MatchID     uuid.UUID
	OtherID     uuid.UUID
	DisplayName string
	Bio         string
	PhotoURL    string
	CreatedAt   time.Time
}

// CreateIfAbsent inserts the match for a canonical pair exactly once. The
// unique constraint on (low_id, high_id) absorbs the concurrent-insert race:
// a losing insert is a no-op, not an error.
func (r *MatchRepo) CreateIfAbsent(ctx context.Context, tx pgx.Tx, pair identity.Pair, now time.Time) (bool, error) {
	if pair.Low == uuid.Nil || pair.High == uuid.Nil {
		return false, fmt.Errorf("invalid match payload")
	}
	if !identity.Less(pair.Low, pair.High) {
		return false, fmt.Errorf("pair is not in canonical order")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var matchID uuid.UUID
	err := tx.QueryRow(ctx, `
INSERT INTO matches (
	id,
	low_id,
	high_id,
	created_at
) VALUES ($1, $2, $3, $4)
ON CONFLICT (low_id, high_id) DO NOTHING
RETURNING id
`, uuid.New(), pair.Low, pair.High, now.UTC()).Scan(&matchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("create match: %w", err)
	}

	return matchID != uuid.Nil, nil
}

func (r *MatchRepo) GetByID(ctx context.Context, matchID uuid.UUID) (MatchRecord, error) {
	if matchID == uuid.Nil {
		return MatchRecord{}, fmt.Errorf("invalid match id")
	}
	if r.pool == nil {
		return MatchRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec MatchRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, low_id, high_id, created_at
FROM matches
WHERE id = $1
`, matchID).Scan(&rec.ID, &rec.LowID, &rec.HighID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchRecord{}, ErrMatchNotFound
		}
		return MatchRecord{}, fmt.Errorf("get match: %w", err)
	}

	return rec, nil
}

// ListWithProfilesForUser returns the user's matches joined with the other
// participant's profile summary, newest match first. One round-trip.
func (r *MatchRepo) ListWithProfilesForUser(ctx context.Context, userID uuid.UUID, limit int) ([]MatchProfileRecord, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []MatchProfileRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	m.id,
	CASE WHEN m.low_id = $1 THEN m.high_id ELSE m.low_id END AS other_id,
	COALESCE(p.display_name, ''),
	COALESCE(p.bio, ''),
	COALESCE(p.photo_url, ''),
	m.created_at
FROM matches m
JOIN profiles p ON p.user_id = CASE WHEN m.low_id = $1 THEN m.high_id ELSE m.low_id END
WHERE m.low_id = $1 OR m.high_id = $1
ORDER BY m.created_at DESC, m.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches with profiles: %w", err)
	}
	defer rows.Close()

	items := make([]MatchProfileRecord, 0, limit)
	for rows.Next() {
		var item MatchProfileRecord
		if err := rows.Scan(
			&item.MatchID,
			&item.OtherID,
			&item.DisplayName,
			&item.Bio,
			&item.PhotoURL,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match with profile: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate matches with profiles: %w", rows.Err())
	}

	return items, nil
}

// MissingMutualPairs finds mutual-like swipe pairs with no match row. The
// actor < target filter keeps one row per unordered pair and yields the
// canonical key directly: Postgres compares uuids byte-wise, the same order
// the identity package uses.
func (r *MatchRepo) MissingMutualPairs(ctx context.Context, limit int) ([]identity.Pair, error) {
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []identity.Pair{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT s1.actor_id, s1.target_id
FROM swipes s1
JOIN swipes s2
	ON s2.actor_id = s1.target_id
	AND s2.target_id = s1.actor_id
	AND s2.decision = 'like'
WHERE
	s1.decision = 'like'
	AND s1.actor_id < s1.target_id
	AND NOT EXISTS (
		SELECT 1
		FROM matches m
		WHERE m.low_id = s1.actor_id AND m.high_id = s1.target_id
	)
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list missing mutual pairs: %w", err)
	}
	defer rows.Close()

	pairs := make([]identity.Pair, 0, limit)
	for rows.Next() {
		var pair identity.Pair
		if err := rows.Scan(&pair.Low, &pair.High); err != nil {
			return nil, fmt.Errorf("scan missing mutual pair: %w", err)
		}
		pairs = append(pairs, pair)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate missing mutual pairs: %w", rows.Err())
	}

	return pairs, nil
}
