package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"pkg.mon.icu/forum/internal/forum"
	"pkg.mon.icu/forum/internal/storage/entity"
)

func (s *Storage) CreatePost(ctx context.Context, p *entity.Post) error {
	return s.Begin(ctx, func(tx pgx.Tx) error {
		return entity.CreatePost(ctx, tx, p)
	})
}

func (s *Storage) FindPost(ctx context.Context, postID entity.Ref) (*entity.Post, error) {
	p := entity.NewPost(postID, 0, "", "")
	if err := s.Begin(ctx, func(tx pgx.Tx) error {
		return entity.FindPost(ctx, tx, p)
	}); err != nil {
		return nil, err
	}

	if p.UserID == 0 {
		return nil, fmt.Errorf("post %d: %w", postID, forum.ErrNotFound)
	}

	return p, nil
}

func (s *Storage) FindPosts(ctx context.Context, offset uint32, limit uint64, includeInactive bool) ([]*entity.Post, error) {
	var posts []*entity.Post
	err := s.Begin(ctx, func(tx pgx.Tx) error {
		var err error
		posts, err = entity.FindPosts(ctx, tx, offset, limit, includeInactive)
		return err
	})
	return posts, err
}

func (s *Storage) SetPostStatus(ctx context.Context, postID entity.Ref, status entity.Status) error {
	return s.Begin(ctx, func(tx pgx.Tx) error {
		p := entity.NewPost(postID, 0, "", "")
		p.Status = status
		if ok, err := entity.UpdatePostStatus(ctx, tx, p); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("post %d: %w", postID, forum.ErrNotFound)
		}
		return nil
	})
}

// DeletePost removes the post together with its comments and every reaction on either.
func (s *Storage) DeletePost(ctx context.Context, postID entity.Ref) (bool, error) {
	var ok bool
	err := s.Begin(ctx, func(tx pgx.Tx) error {
		var err error
		ok, err = entity.DeletePost(ctx, tx, entity.NewPost(postID, 0, "", ""))
		return err
	})
	return ok, err
}

// CommentAuthors returns the distinct authors of comments under the post.
func (s *Storage) CommentAuthors(ctx context.Context, postID entity.Ref) ([]entity.Ref, error) {
	var authors []entity.Ref
	err := s.Begin(ctx, func(tx pgx.Tx) error {
		comments, err := entity.FindComments(ctx, tx, entity.NewPost(postID, 0, "", ""), true)
		if err != nil {
			return err
		}

		seen := make(map[entity.Ref]struct{}, len(comments))
		for _, c := range comments {
			if _, ok := seen[c.UserID]; !ok {
				seen[c.UserID] = struct{}{}
				authors = append(authors, c.UserID)
			}
		}
		return nil
	})
	return authors, err
}
