// Package comment manages comments of posts and pushes every change to the live viewers of the
// owning post.
package comment

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"pkg.mon.icu/forum/internal/events"
	"pkg.mon.icu/forum/internal/forum"
	"pkg.mon.icu/forum/internal/storage/entity"
)

const MaxContentLength = 2000

type Store interface {
	FindPost(ctx context.Context, postID entity.Ref) (*entity.Post, error)
	CreateComment(ctx context.Context, c *entity.Comment) error
	FindComment(ctx context.Context, commentID entity.Ref) (*entity.Comment, error)
	UpdateCommentContent(ctx context.Context, c *entity.Comment) error
	SetCommentStatus(ctx context.Context, c *entity.Comment) error
	DeleteComment(ctx context.Context, commentID entity.Ref) (bool, error)
}

type Ratings interface {
	Refresh(ctx context.Context, userID entity.Ref)
}

type Broadcaster interface {
	Broadcast(postID string, ev events.Event)
}

// Notifier is told about comments held for moderation.
type Notifier interface {
	CommentHeld(c *entity.Comment)
}

type Service struct {
	logger  *zap.SugaredLogger
	store   Store
	ratings Ratings
	bus     Broadcaster

	hold     *regexp.Regexp
	notifier Notifier
}

func NewService(logger *zap.SugaredLogger, store Store, ratings Ratings, bus Broadcaster) *Service {
	return &Service{logger: logger, store: store, ratings: ratings, bus: bus}
}

// Hold makes new comments matching re inactive until a moderator activates them. n may be nil.
func (s *Service) Hold(re *regexp.Regexp, n Notifier) {
	s.hold = re
	s.notifier = n
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("comment content is empty: %w", forum.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", fmt.Errorf("comment content is longer than %d characters: %w", MaxContentLength, forum.ErrInvalidArgument)
	}
	return content, nil
}

func (s *Service) Create(ctx context.Context, actor forum.Actor, postID entity.Ref, content string) (*entity.Comment, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}
	if !actor.Authenticated() {
		return nil, forum.ErrUnauthenticated
	}

	p, err := s.store.FindPost(ctx, postID)
	if err != nil {
		return nil, forum.StoreError("find post", err)
	}
	if p.Status != entity.StatusActive {
		return nil, fmt.Errorf("post %d is not accepting comments: %w", postID, forum.ErrForbidden)
	}

	status := entity.StatusActive
	if s.hold != nil && s.hold.MatchString(content) {
		status = entity.StatusInactive
	}

	c := entity.NewComment(0, postID, actor.UserID, content, status)
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, forum.StoreError("create comment", err)
	}

	if status == entity.StatusInactive {
		s.logger.Infof("Held comment %d on post %d for moderation.", c.ID, postID)
		if s.notifier != nil {
			s.notifier.CommentHeld(c)
		}
		return c, nil
	}

	s.bus.Broadcast(events.PostKey(postID), events.NewCommentCreated(c))
	return c, nil
}

// modifiable loads a comment that actor is allowed to change.
func (s *Service) modifiable(ctx context.Context, actor forum.Actor, commentID entity.Ref) (*entity.Comment, error) {
	if !actor.Authenticated() {
		return nil, forum.ErrUnauthenticated
	}

	c, err := s.store.FindComment(ctx, commentID)
	if err != nil {
		return nil, forum.StoreError("find comment", err)
	}
	if !actor.CanModify(c.UserID) {
		return nil, fmt.Errorf("comment %d belongs to another user: %w", commentID, forum.ErrForbidden)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, actor forum.Actor, commentID entity.Ref, content string) (*entity.Comment, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	c, err := s.modifiable(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}

	c.Content = content
	if err := s.store.UpdateCommentContent(ctx, c); err != nil {
		return nil, forum.StoreError("update comment", err)
	}

	// held comments stay invisible to viewers until activated
	if c.Status == entity.StatusActive {
		s.bus.Broadcast(events.PostKey(c.PostID), events.NewCommentUpdated(c))
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, actor forum.Actor, commentID entity.Ref) error {
	c, err := s.modifiable(ctx, actor, commentID)
	if err != nil {
		return err
	}

	ok, err := s.store.DeleteComment(ctx, commentID)
	if err != nil {
		return forum.StoreError("delete comment", err)
	}
	if !ok {
		return fmt.Errorf("comment %d: %w", commentID, forum.ErrNotFound)
	}

	// reactions on the comment went with it
	s.ratings.Refresh(ctx, c.UserID)
	if c.Status == entity.StatusActive {
		s.bus.Broadcast(events.PostKey(c.PostID), events.NewCommentDeleted(commentID))
	}
	return nil
}

// SetStatus activates or hides a comment. Only administrators moderate.
func (s *Service) SetStatus(ctx context.Context, actor forum.Actor, commentID entity.Ref, status entity.Status) (*entity.Comment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("status %q: %w", status, forum.ErrInvalidArgument)
	}
	if !actor.Authenticated() {
		return nil, forum.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("moderation requires an administrator: %w", forum.ErrForbidden)
	}

	c, err := s.store.FindComment(ctx, commentID)
	if err != nil {
		return nil, forum.StoreError("find comment", err)
	}
	if c.Status == status {
		return c, nil
	}

	c.Status = status
	if err := s.store.SetCommentStatus(ctx, c); err != nil {
		return nil, forum.StoreError("set comment status", err)
	}

	s.bus.Broadcast(events.PostKey(c.PostID), events.NewCommentStatusChanged(c))
	return c, nil
}
