// Package reaction applies like/dislike reactions of users to posts and comments.
//
// A user holds at most one reaction per target. Every mutation that changes the stored row is
// followed, in order, by a rating recomputation of the target's author, a read of the target's
// counters and a broadcast of those counters to the live viewers of the owning post. Only the
// reaction write itself can fail the operation.
package reaction

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"pkg.mon.icu/forum/internal/events"
	"pkg.mon.icu/forum/internal/forum"
	"pkg.mon.icu/forum/internal/metrics"
	"pkg.mon.icu/forum/internal/storage/entity"
)

type Store interface {
	FindReactionTarget(ctx context.Context, t entity.Target) (*entity.ReactionTarget, error)
	UpsertReaction(ctx context.Context, userID entity.Ref, t entity.Target, typ entity.ReactionType) (entity.ReactionChange, error)
	DeleteReaction(ctx context.Context, userID entity.Ref, t entity.Target) (bool, error)
	CountReactions(ctx context.Context, t entity.Target, viewerID entity.Ref) (*entity.Counters, error)
}

// Ratings refreshes the cached rating of a user on a best-effort basis.
type Ratings interface {
	Refresh(ctx context.Context, userID entity.Ref)
}

type Broadcaster interface {
	Broadcast(postID string, ev events.Event)
}

type Service struct {
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	store   Store
	ratings Ratings
	bus     Broadcaster
}

func NewService(logger *zap.SugaredLogger, m *metrics.Metrics, store Store, ratings Ratings, bus Broadcaster) *Service {
	return &Service{logger: logger, metrics: m, store: store, ratings: ratings, bus: bus}
}

// Outcome is what the reacting user gets back.
type Outcome struct {
	Change entity.ReactionChange
	Target entity.Target
	// Type is the reaction that was set, empty after ClearReaction.
	Type entity.ReactionType
	// Counters as seen by the actor; nil if they could not be read after the write.
	Counters *entity.Counters
}

// SetReaction creates or switches the reaction of actor on t. Reacting again with the same
// type changes nothing and is not an error.
func (s *Service) SetReaction(ctx context.Context, actor forum.Actor, t entity.Target, typ entity.ReactionType) (*Outcome, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("reaction target must name exactly one post or comment: %w", forum.ErrInvalidArgument)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("reaction type %q: %w", typ, forum.ErrInvalidArgument)
	}
	if !actor.Authenticated() {
		return nil, forum.ErrUnauthenticated
	}

	rt, err := s.findTarget(ctx, t)
	if err != nil {
		return nil, err
	}
	if !rt.Active() {
		return nil, fmt.Errorf("%s is not accepting reactions: %w", t, forum.ErrForbidden)
	}

	change, err := s.store.UpsertReaction(ctx, actor.UserID, t, typ)
	if err != nil {
		return nil, forum.StoreError("upsert reaction", err)
	}

	return s.settle(ctx, actor, rt, change, typ), nil
}

// ClearReaction removes the reaction of actor on t if there is one. Clearing is allowed on
// inactive targets so a user can always withdraw a reaction.
func (s *Service) ClearReaction(ctx context.Context, actor forum.Actor, t entity.Target) (*Outcome, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("reaction target must name exactly one post or comment: %w", forum.ErrInvalidArgument)
	}
	if !actor.Authenticated() {
		return nil, forum.ErrUnauthenticated
	}

	rt, err := s.findTarget(ctx, t)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.DeleteReaction(ctx, actor.UserID, t)
	if err != nil {
		return nil, forum.StoreError("delete reaction", err)
	}

	change := entity.ReactionUnchanged
	if ok {
		change = entity.ReactionCleared
	}

	return s.settle(ctx, actor, rt, change, ""), nil
}

func (s *Service) findTarget(ctx context.Context, t entity.Target) (*entity.ReactionTarget, error) {
	rt, err := s.store.FindReactionTarget(ctx, t)
	if err != nil {
		return nil, forum.StoreError("find reaction target", err)
	}
	return rt, nil
}

// settle runs the side effects of a committed reaction write. Nothing in here may fail the
// operation.
func (s *Service) settle(ctx context.Context, actor forum.Actor, rt *entity.ReactionTarget, change entity.ReactionChange, typ entity.ReactionType) *Outcome {
	s.metrics.ReactionsTotal.WithLabelValues(targetKind(rt.Target), string(change)).Inc()
	out := &Outcome{Change: change, Target: rt.Target, Type: typ}

	if change != entity.ReactionUnchanged {
		s.logger.Debugf("Reaction of user %d on %s %s.", actor.UserID, rt.Target, change)
		s.ratings.Refresh(ctx, rt.AuthorID)
	}

	counters, err := s.store.CountReactions(ctx, rt.Target, actor.UserID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Errorf("Couldn't count reactions on %s: %s.", rt.Target, err)
		}
		return out
	}
	out.Counters = counters

	// only targets viewers can see are broadcast; clearing is allowed on hidden ones
	if change != entity.ReactionUnchanged && rt.Active() {
		s.bus.Broadcast(events.PostKey(rt.OwnerPostID), events.NewReactionChanged(rt.Target, counters))
	}

	return out
}

func targetKind(t entity.Target) string {
	if t.IsComment() {
		return "comment"
	}
	return "post"
}
