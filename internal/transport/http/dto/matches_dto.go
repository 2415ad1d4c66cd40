package dto

import (
	"time"

	"github.com/google/uuid"
)

type LatestMessageResponse struct {
	ID        uuid.UUID `json:"id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type MatchItemResponse struct {
	MatchID       uuid.UUID              `json:"match_id"`
	OtherID       uuid.UUID              `json:"other_id"`
	DisplayName   string                 `json:"display_name"`
	Bio           string                 `json:"bio"`
	PhotoURL      string                 `json:"photo_url"`
	MatchedAt     time.Time              `json:"matched_at"`
	LatestMessage *LatestMessageResponse `json:"latest_message,omitempty"`
	UnreadCount   int                    `json:"unread_count"`
}

type MatchesResponse struct {
	Items []MatchItemResponse `json:"items"`
}

type MatchResponse struct {
	ID        uuid.UUID `json:"id"`
	LowID     uuid.UUID `json:"low_id"`
	HighID    uuid.UUID `json:"high_id"`
	CreatedAt time.Time `json:"created_at"`
}
