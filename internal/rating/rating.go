// Package rating keeps the cached rating of a user equal to the signed sum of the reactions
// received by everything the user authored.
//
// Ratings are always recomputed in full. When a recomputation fails the user is remembered as
// stale and retried by Run until a recomputation succeeds.
package rating

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"pkg.mon.icu/forum/internal/metrics"
	"pkg.mon.icu/forum/internal/storage/entity"
)

type Store interface {
	SumReactionsForUser(ctx context.Context, userID entity.Ref) (int64, error)
	SetUserRating(ctx context.Context, userID entity.Ref, rating int64) error
}

type Aggregator struct {
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	store   Store

	mu      sync.Mutex
	pending map[entity.Ref]struct{}
}

func NewAggregator(logger *zap.SugaredLogger, m *metrics.Metrics, store Store) *Aggregator {
	return &Aggregator{
		logger:  logger,
		metrics: m,
		store:   store,
		pending: make(map[entity.Ref]struct{}),
	}
}

// Recompute sums the reactions on the user's posts and comments and persists the result.
func (a *Aggregator) Recompute(ctx context.Context, userID entity.Ref) (int64, error) {
	sum, err := a.store.SumReactionsForUser(ctx, userID)
	if err != nil {
		a.metrics.RatingRecomputesTotal.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("couldn't sum reactions of user %d: %w", userID, err)
	}

	if err := a.store.SetUserRating(ctx, userID, sum); err != nil {
		a.metrics.RatingRecomputesTotal.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("couldn't store rating of user %d: %w", userID, err)
	}

	a.metrics.RatingRecomputesTotal.WithLabelValues("ok").Inc()
	a.unmark(userID)
	return sum, nil
}

// Refresh recomputes the rating of userID and never fails: an error is logged and the user is
// left for the reconciliation loop.
func (a *Aggregator) Refresh(ctx context.Context, userID entity.Ref) {
	if userID == 0 {
		return
	}

	rating, err := a.Recompute(ctx, userID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			a.logger.Errorf("Rating of user %d is stale: %s.", userID, err)
		}
		a.mark(userID)
		return
	}

	a.logger.Debugf("Rating of user %d is now %d.", userID, rating)
}

func (a *Aggregator) mark(userID entity.Ref) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[userID] = struct{}{}
	a.metrics.RatingPending.Set(float64(len(a.pending)))
}

func (a *Aggregator) unmark(userID entity.Ref) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pending, userID)
	a.metrics.RatingPending.Set(float64(len(a.pending)))
}

// Pending returns the users whose rating is known to be stale.
func (a *Aggregator) Pending() []entity.Ref {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]entity.Ref, 0, len(a.pending))
	for id := range a.pending {
		ids = append(ids, id)
	}
	return ids
}

// Reconcile retries every stale user once and returns how many are still stale.
func (a *Aggregator) Reconcile(ctx context.Context) int {
	for _, id := range a.Pending() {
		if ctx.Err() != nil {
			break
		}
		if _, err := a.Recompute(ctx, id); err != nil {
			a.logger.Debugf("Reconciling rating of user %d failed again: %s.", id, err)
		} else {
			a.logger.Infof("Reconciled stale rating of user %d.", id)
		}
	}
	return len(a.Pending())
}

// Run reconciles stale ratings every interval until ctx is done.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			a.Reconcile(ctx)
		}
	}
}
