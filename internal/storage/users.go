package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"pkg.mon.icu/forum/internal/forum"
	"pkg.mon.icu/forum/internal/storage/entity"
)

func (s *Storage) CreateUser(ctx context.Context, username string, role entity.Role) (*entity.User, error) {
	u := entity.NewUser(0, username, role)
	if err := s.Begin(ctx, func(tx pgx.Tx) error {
		return entity.CreateUser(ctx, tx, u)
	}); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("username %q is taken: %w", username, forum.ErrInvalidArgument)
		}
		return nil, err
	}
	return u, nil
}

func (s *Storage) FindUser(ctx context.Context, userID entity.Ref) (*entity.User, error) {
	u := entity.NewUser(userID, "", "")
	if err := s.Begin(ctx, func(tx pgx.Tx) error {
		return entity.FindUser(ctx, tx, u)
	}); err != nil {
		return nil, err
	}

	// scans are untouched on a miss
	if u.Username == "" {
		return nil, fmt.Errorf("user %d: %w", userID, forum.ErrNotFound)
	}

	return u, nil
}

func (s *Storage) SumReactionsForUser(ctx context.Context, userID entity.Ref) (int64, error) {
	var sum int64
	err := s.Begin(ctx, func(tx pgx.Tx) error {
		var err error
		sum, err = entity.SumUserReactions(ctx, tx, userID)
		return err
	})
	return sum, err
}

func (s *Storage) SetUserRating(ctx context.Context, userID entity.Ref, rating int64) error {
	return s.Begin(ctx, func(tx pgx.Tx) error {
		if ok, err := entity.UpdateUserRating(ctx, tx, userID, rating); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("user %d: %w", userID, forum.ErrNotFound)
		}
		return nil
	})
}
