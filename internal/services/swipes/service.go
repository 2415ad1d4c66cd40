package swipes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/glimmerapp/backend/internal/domain/enums"
	"github.com/glimmerapp/backend/internal/domain/identity"
	"github.com/glimmerapp/backend/internal/domain/model"
	"github.com/glimmerapp/backend/internal/infra/report"
	pgrepo "github.com/glimmerapp/backend/internal/repo/postgres"
	ratesvc "github.com/glimmerapp/backend/internal/services/rate"
)

var (
	ErrValidation = errors.New("validation error")
	ErrSelfSwipe  = errors.New("self swipe is not allowed")
	ErrDuplicate  = errors.New("swipe already recorded")
)

type SwipeStore interface {
	Create(ctx context.Context, tx pgx.Tx, actorID, targetID uuid.UUID, decision enums.SwipeDecision, now time.Time) (pgrepo.SwipeRecord, error)
	ReverseLikeExists(ctx context.Context, tx pgx.Tx, actorID, targetID uuid.UUID) (bool, error)
}

type MatchStore interface {
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, pair identity.Pair, now time.Time) (bool, error)
}

type RateBudget interface {
	Allow(ctx context.Context, userID uuid.UUID) (time.Duration, bool, error)
}

type Service struct {
	deriver  *Deriver
	swipes   SwipeStore
	budget   RateBudget
	reporter report.Reporter
	logger   *zap.Logger
	runTx    func(context.Context, func(context.Context, pgx.Tx) error) error
	now      func() time.Time
}

type Dependencies struct {
	Pool       *pgxpool.Pool
	SwipeStore SwipeStore
	MatchStore MatchStore
	Budget     RateBudget
	Reporter   report.Reporter
	Logger     *zap.Logger
}

type Result struct {
	Swipe        model.Swipe
	MatchCreated bool
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
		deriver:  NewDeriver(deps.SwipeStore, deps.MatchStore),
		swipes:   deps.SwipeStore,
		budget:   deps.Budget,
		reporter: reporter,
		logger:   logger,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
		now: time.Now,
	}
}

// Swipe records the actor's decision about the target and, for a like, runs
// the match-derivation rule in the same transaction. Exactly one of the two
// concurrent mutual-like swipes observes MatchCreated=true.
func (s *Service) Swipe(ctx context.Context, actorID, targetID uuid.UUID, decision enums.SwipeDecision) (Result, error) {
	if actorID == uuid.Nil || targetID == uuid.Nil {
		return Result{}, ErrValidation
	}
	if actorID == targetID {
		return Result{}, ErrSelfSwipe
	}
	if decision != enums.DecisionLike && decision != enums.DecisionPass {
		return Result{}, ErrValidation
	}
	if s.swipes == nil {
		return Result{}, fmt.Errorf("swipe dependencies are not configured")
	}

	if s.budget != nil {
		retryAfter, allowed, err := s.budget.Allow(ctx, actorID)
		if err != nil {
			return Result{}, fmt.Errorf("apply swipe rate budget: %w", err)
		}
		if !allowed {
			return Result{}, ratesvc.LimitError{RetryAfter: retryAfter}
		}
	}

	now := s.now().UTC()

	var result Result
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		rec, err := s.swipes.Create(txCtx, tx, actorID, targetID, decision, now)
		if err != nil {
			if errors.Is(err, pgrepo.ErrSwipeExists) {
				return ErrDuplicate
			}
			return err
		}
		result.Swipe = model.Swipe{
			ID:        rec.ID,
			ActorID:   rec.ActorID,
			TargetID:  rec.TargetID,
			Decision:  rec.Decision,
			CreatedAt: rec.CreatedAt,
		}

		if decision != enums.DecisionLike {
			return nil
		}

		created, err := s.deriveSuppressed(txCtx, tx, actorID, targetID, now)
		if err != nil {
			// Fire-and-forget: match derivation must never abort the
			// originating swipe.
			s.logger.Warn("match derivation failed, swipe committed without it",
				zap.String("actor_id", actorID.String()),
				zap.String("target_id", targetID.String()),
				zap.Error(err),
			)
			s.reporter.Error("swipes.derive_match", err, map[string]string{
				"actor_id":  actorID.String(),
				"target_id": targetID.String(),
			})
			return nil
		}
		result.MatchCreated = created
		return nil
	}); err != nil {
		return Result{}, err
	}

	return result, nil
}

// deriveSuppressed runs the rule in a nested transaction so a failure rolls
// back only the derivation work, keeping the outer swipe insert committable.
func (s *Service) deriveSuppressed(ctx context.Context, tx pgx.Tx, actorID, targetID uuid.UUID, now time.Time) (bool, error) {
	if tx == nil {
		return s.deriver.DeriveOnLike(ctx, nil, actorID, targetID, now)
	}

	sub, err := tx.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin derivation savepoint: %w", err)
	}

	created, err := s.deriver.DeriveOnLike(ctx, sub, actorID, targetID, now)
	if err != nil {
		_ = sub.Rollback(ctx)
		return false, err
	}

	if err := sub.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit derivation savepoint: %w", err)
	}

	return created, nil
}
