// Package post manages posts and assembles what a viewer sees of them.
package post

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"pkg.mon.icu/forum/internal/events"
	"pkg.mon.icu/forum/internal/forum"
	"pkg.mon.icu/forum/internal/storage/entity"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 20000
	PageSize         = 100
)

type Store interface {
	CreatePost(ctx context.Context, p *entity.Post) error
	FindPost(ctx context.Context, postID entity.Ref) (*entity.Post, error)
	FindPosts(ctx context.Context, offset uint32, limit uint64, includeInactive bool) ([]*entity.Post, error)
	SetPostStatus(ctx context.Context, postID entity.Ref, status entity.Status) error
	DeletePost(ctx context.Context, postID entity.Ref) (bool, error)
	CommentAuthors(ctx context.Context, postID entity.Ref) ([]entity.Ref, error)
	FindComments(ctx context.Context, postID entity.Ref, includeInactive bool) ([]*entity.Comment, error)
	CountReactions(ctx context.Context, t entity.Target, viewerID entity.Ref) (*entity.Counters, error)
}

type Ratings interface {
	Refresh(ctx context.Context, userID entity.Ref)
}

type Broadcaster interface {
	Broadcast(postID string, ev events.Event)
}

type Service struct {
	logger  *zap.SugaredLogger
	store   Store
	ratings Ratings
	bus     Broadcaster
}

func NewService(logger *zap.SugaredLogger, store Store, ratings Ratings, bus Broadcaster) *Service {
	return &Service{logger: logger, store: store, ratings: ratings, bus: bus}
}

type Summary struct {
	Post     *entity.Post
	Counters *entity.Counters
}

type CommentView struct {
	Comment  *entity.Comment
	Counters *entity.Counters
}

// Thread is a post with its comments, as seen by one viewer.
type Thread struct {
	Summary
	Comments []*CommentView
}

func (s *Service) Create(ctx context.Context, actor forum.Actor, title, content string) (*entity.Post, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	switch {
	case title == "":
		return nil, fmt.Errorf("post title is empty: %w", forum.ErrInvalidArgument)
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return nil, fmt.Errorf("post title is longer than %d characters: %w", MaxTitleLength, forum.ErrInvalidArgument)
	case content == "":
		return nil, fmt.Errorf("post content is empty: %w", forum.ErrInvalidArgument)
	case utf8.RuneCountInString(content) > MaxContentLength:
		return nil, fmt.Errorf("post content is longer than %d characters: %w", MaxContentLength, forum.ErrInvalidArgument)
	}
	if !actor.Authenticated() {
		return nil, forum.ErrUnauthenticated
	}

	p := entity.NewPost(0, actor.UserID, title, content)
	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, forum.StoreError("create post", err)
	}
	s.logger.Debugf("User %d created post %d.", actor.UserID, p.ID)
	return p, nil
}

// Visible loads a post the viewer may see; inactive posts exist only for administrators.
func (s *Service) Visible(ctx context.Context, viewer forum.Actor, postID entity.Ref) (*entity.Post, error) {
	p, err := s.store.FindPost(ctx, postID)
	if err != nil {
		return nil, forum.StoreError("find post", err)
	}
	if p.Status != entity.StatusActive && !viewer.IsAdmin() {
		return nil, fmt.Errorf("post %d: %w", postID, forum.ErrNotFound)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, viewer forum.Actor, postID entity.Ref) (*Thread, error) {
	p, err := s.Visible(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}

	counters, err := s.store.CountReactions(ctx, entity.PostTarget(p.ID), viewer.UserID)
	if err != nil {
		return nil, forum.StoreError("count post reactions", err)
	}

	comments, err := s.store.FindComments(ctx, p.ID, viewer.IsAdmin())
	if err != nil {
		return nil, forum.StoreError("find comments", err)
	}

	t := &Thread{Summary: Summary{p, counters}, Comments: make([]*CommentView, len(comments))}
	for i, c := range comments {
		cc, err := s.store.CountReactions(ctx, entity.CommentTarget(c.ID), viewer.UserID)
		if err != nil {
			return nil, forum.StoreError("count comment reactions", err)
		}
		t.Comments[i] = &CommentView{c, cc}
	}
	return t, nil
}

// List returns page (starting at 0) of posts, newest first.
func (s *Service) List(ctx context.Context, viewer forum.Actor, page uint32) ([]*Summary, error) {
	posts, err := s.store.FindPosts(ctx, page*PageSize, PageSize, viewer.IsAdmin())
	if err != nil {
		return nil, forum.StoreError("find posts", err)
	}

	out := make([]*Summary, len(posts))
	for i, p := range posts {
		counters, err := s.store.CountReactions(ctx, entity.PostTarget(p.ID), viewer.UserID)
		if err != nil {
			return nil, forum.StoreError("count post reactions", err)
		}
		out[i] = &Summary{p, counters}
	}
	return out, nil
}

// Delete removes a post together with its comments and every reaction on them, then refreshes
// the ratings of everyone who lost reactions.
func (s *Service) Delete(ctx context.Context, actor forum.Actor, postID entity.Ref) error {
	if !actor.Authenticated() {
		return forum.ErrUnauthenticated
	}

	p, err := s.store.FindPost(ctx, postID)
	if err != nil {
		return forum.StoreError("find post", err)
	}
	if !actor.CanModify(p.UserID) {
		return fmt.Errorf("post %d belongs to another user: %w", postID, forum.ErrForbidden)
	}

	authors, err := s.store.CommentAuthors(ctx, postID)
	if err != nil {
		return forum.StoreError("find comment authors", err)
	}

	ok, err := s.store.DeletePost(ctx, postID)
	if err != nil {
		return forum.StoreError("delete post", err)
	}
	if !ok {
		return fmt.Errorf("post %d: %w", postID, forum.ErrNotFound)
	}
	s.logger.Infof("Post %d deleted by user %d.", postID, actor.UserID)

	s.ratings.Refresh(ctx, p.UserID)
	for _, userID := range authors {
		if userID != p.UserID {
			s.ratings.Refresh(ctx, userID)
		}
	}
	return nil
}

// SetStatus activates or hides a post. Only administrators moderate.
func (s *Service) SetStatus(ctx context.Context, actor forum.Actor, postID entity.Ref, status entity.Status) (*entity.Post, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("status %q: %w", status, forum.ErrInvalidArgument)
	}
	if !actor.Authenticated() {
		return nil, forum.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("moderation requires an administrator: %w", forum.ErrForbidden)
	}

	p, err := s.store.FindPost(ctx, postID)
	if err != nil {
		return nil, forum.StoreError("find post", err)
	}
	if p.Status == status {
		return p, nil
	}

	if err := s.store.SetPostStatus(ctx, postID, status); err != nil {
		return nil, forum.StoreError("set post status", err)
	}
	p.Status = status

	s.bus.Broadcast(events.PostKey(postID), events.NewPostStatusChanged(postID, status))
	return p, nil
}
