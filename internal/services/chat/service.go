package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glimmerapp/backend/internal/domain/identity"
	"github.com/glimmerapp/backend/internal/domain/model"
	"github.com/glimmerapp/backend/internal/infra/report"
	pgrepo "github.com/glimmerapp/backend/internal/repo/postgres"
	ratesvc "github.com/glimmerapp/backend/internal/services/rate"
)

const MaxContentChars = 500

var (
	ErrValidation     = errors.New("validation error")
	ErrMatchNotFound  = errors.New("match not found")
	ErrNotParticipant = errors.New("sender is not a participant of the match")
)

type MatchStore interface {
	GetByID(ctx context.Context, matchID uuid.UUID) (pgrepo.MatchRecord, error)
}

type MessageStore interface {
	Create(ctx context.Context, matchID, senderID uuid.UUID, content string, now time.Time) (pgrepo.MessageRecord, error)
	ListRecentByMatch(ctx context.Context, matchID uuid.UUID, limit int) ([]pgrepo.MessageRecord, error)
}

type RateBudget interface {
	Allow(ctx context.Context, userID uuid.UUID) (time.Duration, bool, error)
}

type Service struct {
	matches  MatchStore
	messages MessageStore
	feed     Feed
	budget   RateBudget
	reporter report.Reporter
	logger   *zap.Logger
	now      func() time.Time
}

type Dependencies struct {
	MatchStore   MatchStore
	MessageStore MessageStore
	Feed         Feed
	Budget       RateBudget
	Reporter     report.Reporter
	Logger       *zap.Logger
}

func NewService(deps Dependencies) *Service {
	reporter := deps.Reporter
	if reporter == nil {
		reporter = report.Nop()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		matches:  deps.MatchStore,
		messages: deps.MessageStore,
		feed:     deps.Feed,
		budget:   deps.Budget,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
	}
}

// Send validates and persists one message, then publishes it on the change
// feed. Validation runs before any insert; a publish failure is logged but
// does not fail the send, because subscribers reconcile from the store.
func (s *Service) Send(ctx context.Context, matchID, senderID uuid.UUID, content string) (model.Message, error) {
	if matchID == uuid.Nil || senderID == uuid.Nil {
		return model.Message{}, ErrValidation
	}
	if content == "" || utf8.RuneCountInString(content) > MaxContentChars {
		return model.Message{}, ErrValidation
	}
	if s.matches == nil || s.messages == nil {
		return model.Message{}, fmt.Errorf("chat dependencies are not configured")
	}

	if err := s.requireParticipant(ctx, matchID, senderID, "chat.send"); err != nil {
		return model.Message{}, err
	}

	if s.budget != nil {
		retryAfter, allowed, err := s.budget.Allow(ctx, senderID)
		if err != nil {
			return model.Message{}, fmt.Errorf("apply message rate budget: %w", err)
		}
		if !allowed {
			return model.Message{}, ratesvc.LimitError{RetryAfter: retryAfter}
		}
	}

	rec, err := s.messages.Create(ctx, matchID, senderID, content, s.now().UTC())
	if err != nil {
		s.reporter.Error("chat.send", err, map[string]string{
			"match_id":  matchID.String(),
			"sender_id": senderID.String(),
		})
		return model.Message{}, fmt.Errorf("create message: %w", err)
	}

	if s.feed != nil {
		if err := s.feed.Publish(ctx, Event{
			MessageID: rec.ID,
			MatchID:   rec.MatchID,
			SenderID:  rec.SenderID,
			Content:   rec.Content,
			CreatedAt: rec.CreatedAt,
		}); err != nil {
			s.logger.Warn("publish chat event failed",
				zap.String("match_id", matchID.String()),
				zap.Error(err),
			)
		}
	}

	return toMessage(rec), nil
}

// History returns the newest messages of the match, up to limit, in display
// order. The store fetches from the tail so a conversation longer than the
// window keeps its most recent messages. Only participants may read.
func (s *Service) History(ctx context.Context, matchID, requesterID uuid.UUID, limit int) ([]model.Message, error) {
	if matchID == uuid.Nil || requesterID == uuid.Nil {
		return nil, ErrValidation
	}
	if s.matches == nil || s.messages == nil {
		return nil, fmt.Errorf("chat dependencies are not configured")
	}

	if err := s.requireParticipant(ctx, matchID, requesterID, "chat.history"); err != nil {
		return nil, err
	}

	records, err := s.messages.ListRecentByMatch(ctx, matchID, limit)
	if err != nil {
		return nil, err
	}

	// The store returns newest first; display order is ascending.
	items := make([]model.Message, len(records))
	for i, rec := range records {
		items[len(records)-1-i] = toMessage(rec)
	}
	return items, nil
}

// Subscribe opens a live tail for the match, participants only.
func (s *Service) Subscribe(ctx context.Context, matchID, requesterID uuid.UUID) (<-chan Event, func(), error) {
	if matchID == uuid.Nil || requesterID == uuid.Nil {
		return nil, nil, ErrValidation
	}
	if s.feed == nil {
		return nil, nil, fmt.Errorf("change feed is not configured")
	}

	if err := s.requireParticipant(ctx, matchID, requesterID, "chat.subscribe"); err != nil {
		return nil, nil, err
	}

	return s.feed.Subscribe(ctx, matchID)
}

func (s *Service) requireParticipant(ctx context.Context, matchID, userID uuid.UUID, op string) error {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("get match: %w", err)
	}

	pair := identity.Pair{Low: match.LowID, High: match.HighID}
	if !pair.Contains(userID) {
		s.reporter.Error(op, ErrNotParticipant, map[string]string{
			"match_id": matchID.String(),
			"user_id":  userID.String(),
		})
		return ErrNotParticipant
	}

	return nil
}

func toMessage(rec pgrepo.MessageRecord) model.Message {
	return model.Message{
		ID:        rec.ID,
		MatchID:   rec.MatchID,
		SenderID:  rec.SenderID,
		Content:   rec.Content,
		CreatedAt: rec.CreatedAt,
	}
}
