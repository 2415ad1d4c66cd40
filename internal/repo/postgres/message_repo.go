package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

type MessageRecord struct {
	ID        uuid.UUID
	MatchID   uuid.UUID
	SenderID  uuid.UUID
	Content   string
	CreatedAt time.Time
}

// MessageSummary is the per-match aggregate the match list needs: the latest
// message and the total count of messages sent by the peer.
type MessageSummary struct {
	MatchID       uuid.UUID
	LatestID      uuid.UUID
	LatestSender  uuid.UUID
	LatestContent string
	LatestAt      time.Time
	FromPeerCount int
}

func (r *MessageRepo) Create(ctx context.Context, matchID, senderID uuid.UUID, content string, now time.Time) (MessageRecord, error) {
	if matchID == uuid.Nil || senderID == uuid.Nil || content == "" {
		return MessageRecord{}, fmt.Errorf("invalid message payload")
	}
	if r.pool == nil {
		return MessageRecord{}, errors.New("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec MessageRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO messages (
	id,
	match_id,
	sender_id,
	content,
	created_at
) VALUES ($1, $2, $3, $4, $5)
RETURNING id, match_id, sender_id, content, created_at
`, uuid.New(), matchID, senderID, content, now.UTC()).Scan(
		&rec.ID,
		&rec.MatchID,
		&rec.SenderID,
		&rec.Content,
		&rec.CreatedAt,
	)
	if err != nil {
		return MessageRecord{}, fmt.Errorf("create message: %w", err)
	}

	return rec, nil
}

// ListRecentByMatch returns up to limit of the match's newest messages,
// newest first. Fetching from the tail keeps a long conversation's recent
// messages inside the window; callers reverse for display order.
func (r *MessageRepo) ListRecentByMatch(ctx context.Context, matchID uuid.UUID, limit int) ([]MessageRecord, error) {
	if matchID == uuid.Nil {
		return nil, fmt.Errorf("invalid match id")
	}
	if limit <= 0 {
		limit = 500
	}
	if r.pool == nil {
		return []MessageRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, match_id, sender_id, content, created_at
FROM messages
WHERE match_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, matchID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]MessageRecord, 0, limit)
	for rows.Next() {
		var rec MessageRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.MatchID,
			&rec.SenderID,
			&rec.Content,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}

	return items, nil
}

// SummariesByMatchIDs aggregates all listed matches in a single round-trip.
// FromPeerCount counts messages whose sender is not the viewer; there is no
// read marker, so this is a total-ever-received figure.
func (r *MessageRepo) SummariesByMatchIDs(ctx context.Context, matchIDs []uuid.UUID, viewerID uuid.UUID) (map[uuid.UUID]MessageSummary, error) {
	if viewerID == uuid.Nil {
		return nil, fmt.Errorf("invalid viewer id")
	}
	if len(matchIDs) == 0 {
		return map[uuid.UUID]MessageSummary{}, nil
	}
	if r.pool == nil {
		return map[uuid.UUID]MessageSummary{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	match_id,
	(ARRAY_AGG(id ORDER BY created_at DESC, id DESC))[1],
	(ARRAY_AGG(sender_id ORDER BY created_at DESC, id DESC))[1],
	(ARRAY_AGG(content ORDER BY created_at DESC, id DESC))[1],
	MAX(created_at),
	COUNT(*) FILTER (WHERE sender_id <> $2)
FROM messages
WHERE match_id = ANY($1)
GROUP BY match_id
`, matchIDs, viewerID)
	if err != nil {
		return nil, fmt.Errorf("summarize messages: %w", err)
	}
	defer rows.Close()

	summaries := make(map[uuid.UUID]MessageSummary, len(matchIDs))
	for rows.Next() {
		var s MessageSummary
		if err := rows.Scan(
			&s.MatchID,
			&s.LatestID,
			&s.LatestSender,
			&s.LatestContent,
			&s.LatestAt,
			&s.FromPeerCount,
		); err != nil {
			return nil, fmt.Errorf("scan message summary: %w", err)
		}
		summaries[s.MatchID] = s
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate message summaries: %w", rows.Err())
	}

	return summaries, nil
}
