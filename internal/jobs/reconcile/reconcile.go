// Package reconcile backfills matches for mutual-like pairs that lost their
// match row, for example when derivation was suppressed by a transient fault.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/glimmerapp/backend/internal/domain/identity"
	pgrepo "github.com/glimmerapp/backend/internal/repo/postgres"
)

type pairLister interface {
	MissingMutualPairs(ctx context.Context, limit int) ([]identity.Pair, error)
}

type matchWriter interface {
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, pair identity.Pair, now time.Time) (bool, error)
}

type Job struct {
	pairs   pairLister
	matches matchWriter
	runTx   func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
	batch   int
	now     func() time.Time
	logger  *zap.Logger
}

func New(pool *pgxpool.Pool, repo *pgrepo.MatchRepo, batch int, logger *zap.Logger) *Job {
	if batch <= 0 {
		batch = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		pairs:   repo,
		matches: repo,
		runTx: func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		},
		batch:  batch,
		now:    time.Now,
		logger: logger,
	}
}

// Run processes one batch. Each pair gets its own transaction so one failing
// insert does not stall the rest of the batch.
func (j *Job) Run(ctx context.Context) error {
	if j.pairs == nil || j.matches == nil {
		return nil
	}

	missing, err := j.pairs.MissingMutualPairs(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list missing mutual pairs: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}

	var created int
	for _, pair := range missing {
		err := j.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			ok, err := j.matches.CreateIfAbsent(ctx, tx, pair, j.now().UTC())
			if err != nil {
				return err
			}
			if ok {
				created++
			}
			return nil
		})
		if err != nil {
			j.logger.Warn("reconcile match failed",
				zap.String("low_id", pair.Low.String()),
				zap.String("high_id", pair.High.String()),
				zap.Error(err),
			)
		}
	}

	if created > 0 {
		j.logger.Info("match reconciliation completed", zap.Int("created", created))
	}
	return nil
}

// RunPeriodic runs until the context is cancelled. An interval of zero or
// less disables the job.
func (j *Job) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Warn("reconcile run failed", zap.Error(err))
			}
		}
	}
}
