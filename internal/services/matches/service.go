// Package matches assembles the match list screen: the user's matches with
// the other participant's profile summary and the latest conversation state.
package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glimmerapp/backend/internal/domain/identity"
	"github.com/glimmerapp/backend/internal/domain/model"
	pgrepo "github.com/glimmerapp/backend/internal/repo/postgres"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrMatchNotFound  = errors.New("match not found")
	ErrNotParticipant = errors.New("requester is not a participant of the match")
)

type MatchStore interface {
	GetByID(ctx context.Context, matchID uuid.UUID) (pgrepo.MatchRecord, error)
	ListWithProfilesForUser(ctx context.Context, userID uuid.UUID, limit int) ([]pgrepo.MatchProfileRecord, error)
}

type MessageStore interface {
	SummariesByMatchIDs(ctx context.Context, matchIDs []uuid.UUID, viewerID uuid.UUID) (map[uuid.UUID]pgrepo.MessageSummary, error)
}

// LatestMessage is the newest message of a conversation as shown on the list.
type LatestMessage struct {
	ID        uuid.UUID `json:"id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is one row of the match list. LatestMessage is nil for conversations
// with no messages yet; UnreadCount is the total received from the peer.
type Item struct {
	MatchID       uuid.UUID      `json:"match_id"`
	OtherID       uuid.UUID      `json:"other_id"`
	DisplayName   string         `json:"display_name"`
	Bio           string         `json:"bio"`
	PhotoURL      string         `json:"photo_url"`
	MatchedAt     time.Time      `json:"matched_at"`
	LatestMessage *LatestMessage `json:"latest_message,omitempty"`
	UnreadCount   int            `json:"unread_count"`
}

type Service struct {
	matches  MatchStore
	messages MessageStore
}

type Dependencies struct {
	MatchStore   MatchStore
	MessageStore MessageStore
}

func NewService(deps Dependencies) *Service {
	return &Service{
		matches:  deps.MatchStore,
		messages: deps.MessageStore,
	}
}

// List builds the user's match list in two store round-trips regardless of
// how many matches the user has: one matches-with-profiles query and one
// aggregate message summary query over all returned match ids.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]Item, error) {
	if userID == uuid.Nil {
		return nil, ErrValidation
	}
	if s.matches == nil || s.messages == nil {
		return nil, fmt.Errorf("match list dependencies are not configured")
	}

	records, err := s.matches.ListWithProfilesForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	if len(records) == 0 {
		return []Item{}, nil
	}

	matchIDs := make([]uuid.UUID, 0, len(records))
	for _, rec := range records {
		matchIDs = append(matchIDs, rec.MatchID)
	}

	summaries, err := s.messages.SummariesByMatchIDs(ctx, matchIDs, userID)
	if err != nil {
		return nil, fmt.Errorf("summarize conversations: %w", err)
	}

	items := make([]Item, 0, len(records))
	for _, rec := range records {
		item := Item{
			MatchID:     rec.MatchID,
			OtherID:     rec.OtherID,
			DisplayName: rec.DisplayName,
			Bio:         rec.Bio,
			PhotoURL:    rec.PhotoURL,
			MatchedAt:   rec.CreatedAt,
		}
		if summary, ok := summaries[rec.MatchID]; ok {
			item.LatestMessage = &LatestMessage{
				ID:        summary.LatestID,
				SenderID:  summary.LatestSender,
				Content:   summary.LatestContent,
				CreatedAt: summary.LatestAt,
			}
			item.UnreadCount = summary.FromPeerCount
		}
		items = append(items, item)
	}

	return items, nil
}

// Get returns one match for a participant, without message aggregation.
func (s *Service) Get(ctx context.Context, matchID, requesterID uuid.UUID) (model.Match, error) {
	if matchID == uuid.Nil || requesterID == uuid.Nil {
		return model.Match{}, ErrValidation
	}
	if s.matches == nil {
		return model.Match{}, fmt.Errorf("match store is not configured")
	}

	rec, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return model.Match{}, ErrMatchNotFound
		}
		return model.Match{}, err
	}

	pair := identity.Pair{Low: rec.LowID, High: rec.HighID}
	if !pair.Contains(requesterID) {
		return model.Match{}, ErrNotParticipant
	}

	return model.Match{
		ID:        rec.ID,
		LowID:     rec.LowID,
		HighID:    rec.HighID,
		CreatedAt: rec.CreatedAt,
	}, nil
}
