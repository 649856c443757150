package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"pkg.mon.icu/forum/internal/forum"
	"pkg.mon.icu/forum/internal/storage/entity"
)

func (s *Storage) CreateComment(ctx context.Context, c *entity.Comment) error {
	return s.Begin(ctx, func(tx pgx.Tx) error {
		return entity.CreateComment(ctx, tx, c)
	})
}

func (s *Storage) FindComment(ctx context.Context, commentID entity.Ref) (*entity.Comment, error) {
	c := entity.NewComment(commentID, 0, 0, "", "")
	if err := s.Begin(ctx, func(tx pgx.Tx) error {
		return entity.FindComment(ctx, tx, c)
	}); err != nil {
		return nil, err
	}

	if c.PostID == 0 {
		return nil, fmt.Errorf("comment %d: %w", commentID, forum.ErrNotFound)
	}

	return c, nil
}

func (s *Storage) FindComments(ctx context.Context, postID entity.Ref, includeInactive bool) ([]*entity.Comment, error) {
	var comments []*entity.Comment
	err := s.Begin(ctx, func(tx pgx.Tx) error {
		var err error
		comments, err = entity.FindComments(ctx, tx, entity.NewPost(postID, 0, "", ""), includeInactive)
		return err
	})
	return comments, err
}

func (s *Storage) UpdateCommentContent(ctx context.Context, c *entity.Comment) error {
	return s.Begin(ctx, func(tx pgx.Tx) error {
		return entity.UpdateCommentContent(ctx, tx, c)
	})
}

func (s *Storage) SetCommentStatus(ctx context.Context, c *entity.Comment) error {
	return s.Begin(ctx, func(tx pgx.Tx) error {
		return entity.UpdateCommentStatus(ctx, tx, c)
	})
}

// DeleteComment removes the comment and, through the foreign key, every reaction on it.
func (s *Storage) DeleteComment(ctx context.Context, commentID entity.Ref) (bool, error) {
	var ok bool
	err := s.Begin(ctx, func(tx pgx.Tx) error {
		var err error
		ok, err = entity.DeleteComment(ctx, tx, entity.NewComment(commentID, 0, 0, "", ""))
		return err
	})
	return ok, err
}
