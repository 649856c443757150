package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"pkg.mon.icu/forum/internal/forum"
	"pkg.mon.icu/forum/internal/storage/entity"
)

func (s *Storage) FindReactionTarget(ctx context.Context, t entity.Target) (*entity.ReactionTarget, error) {
	rt := &entity.ReactionTarget{Target: t}
	if err := s.Begin(ctx, func(tx pgx.Tx) error {
		return entity.FindReactionTarget(ctx, tx, rt)
	}); err != nil {
		return nil, err
	}

	if rt.AuthorID == 0 {
		return nil, fmt.Errorf("%s: %w", t, forum.ErrNotFound)
	}

	return rt, nil
}

// UpsertReaction stores the reaction of userID on t inside one transaction: the existing row is
// locked and either left alone, switched to typ, or created.
func (s *Storage) UpsertReaction(ctx context.Context, userID entity.Ref, t entity.Target, typ entity.ReactionType) (entity.ReactionChange, error) {
	var change entity.ReactionChange
	err := s.Begin(ctx, func(tx pgx.Tx) error {
		er := entity.NewReaction(0, userID, t, "")
		if err := entity.FindReactionForUpdate(ctx, tx, er); err != nil {
			return err
		}

		if er.ID == 0 {
			s.logger.Debugf("Creating %s reaction from user %d on %s.", typ, userID, t)
			er.Type = typ
			if err := entity.CreateReaction(ctx, tx, er); err != nil {
				return err
			}
			if er.ID != 0 {
				change = entity.ReactionCreated
				return nil
			}

			// lost an insert race against the same user, the row exists now
			if err := entity.FindReactionForUpdate(ctx, tx, er); err != nil {
				return err
			}
		}

		if er.Type == typ {
			change = entity.ReactionUnchanged
			return nil
		}

		s.logger.Debugf("Switching reaction %d from user %d on %s to %s.", er.ID, userID, t, typ)
		er.Type = typ
		if _, err := entity.UpdateReactionType(ctx, tx, er); err != nil {
			return err
		}
		change = entity.ReactionSwitched
		return nil
	})
	if err != nil {
		return "", err
	}

	return change, nil
}

func (s *Storage) DeleteReaction(ctx context.Context, userID entity.Ref, t entity.Target) (bool, error) {
	var ok bool
	err := s.Begin(ctx, func(tx pgx.Tx) error {
		var err error
		ok, err = entity.DeleteReaction(ctx, tx, entity.NewReaction(0, userID, t, ""))
		return err
	})
	return ok, err
}

func (s *Storage) CountReactions(ctx context.Context, t entity.Target, viewerID entity.Ref) (*entity.Counters, error) {
	var c *entity.Counters
	err := s.Begin(ctx, func(tx pgx.Tx) error {
		var err error
		c, err = entity.CountReactions(ctx, tx, t, viewerID)
		return err
	})
	return c, err
}
