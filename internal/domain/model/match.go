package model

import (
	"time"

	"github.com/google/uuid"
)

// Match participants are stored under the canonical order: LowID sorts before
// HighID, and (LowID, HighID) is the deduplication key.
type Match struct {
	ID        uuid.UUID `json:"id"`
	LowID     uuid.UUID `json:"low_id"`
	HighID    uuid.UUID `json:"high_id"`
	CreatedAt time.Time `json:"created_at"`
}
