// Package memory is an in-process store with the same contract as the PostgreSQL storage.
// Nothing survives a restart; it backs the "memory" storage driver and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pkg.mon.icu/forum/internal/forum"
	"pkg.mon.icu/forum/internal/storage/entity"
)

type reactionKey struct {
	userID entity.Ref
	target entity.Target
}

type Store struct {
	mu sync.Mutex

	now    func() time.Time
	nextID entity.ID

	users     map[entity.Ref]*entity.User
	posts     map[entity.Ref]*entity.Post
	comments  map[entity.Ref]*entity.Comment
	reactions map[reactionKey]*entity.Reaction

	// fail, when set, is returned by every operation; used to simulate an unavailable store.
	fail error
}

func New() *Store {
	return &Store{
		now:       time.Now,
		users:     make(map[entity.Ref]*entity.User),
		posts:     make(map[entity.Ref]*entity.Post),
		comments:  make(map[entity.Ref]*entity.Comment),
		reactions: make(map[reactionKey]*entity.Reaction),
	}
}

// Fail makes every following operation return err until called again with nil.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *Store) id() entity.ID {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateUser(_ context.Context, username string, role entity.Role) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}

	for _, u := range s.users {
		if u.Username == username {
			return nil, fmt.Errorf("username %q is taken: %w", username, forum.ErrInvalidArgument)
		}
	}

	u := entity.NewUser(s.id(), username, role)
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (s *Store) FindUser(_ context.Context, userID entity.Ref) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, forum.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) SetUserRating(_ context.Context, userID entity.Ref, rating int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, forum.ErrNotFound)
	}
	u.Rating = rating
	return nil
}

func (s *Store) SumReactionsForUser(_ context.Context, userID entity.Ref) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}

	var sum int64
	for _, r := range s.reactions {
		if s.authorOf(r.Target) == userID {
			sum += r.Type.Sign()
		}
	}
	return sum, nil
}

func (s *Store) authorOf(t entity.Target) entity.Ref {
	if t.IsComment() {
		if c, ok := s.comments[t.CommentID]; ok {
			return c.UserID
		}
		return 0
	}
	if p, ok := s.posts[t.PostID]; ok {
		return p.UserID
	}
	return 0
}

func (s *Store) CreatePost(_ context.Context, p *entity.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}

	if _, ok := s.users[p.UserID]; !ok {
		return fmt.Errorf("user %d: %w", p.UserID, forum.ErrNotFound)
	}

	p.ID = s.id()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.posts[p.ID] = &cp
	return nil
}

func (s *Store) FindPost(_ context.Context, postID entity.Ref) (*entity.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}

	p, ok := s.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post %d: %w", postID, forum.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) FindPosts(_ context.Context, offset uint32, limit uint64, includeInactive bool) ([]*entity.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}

	all := make([]*entity.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if includeInactive || p.Status == entity.StatusActive {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	if uint64(offset) >= uint64(len(all)) {
		return []*entity.Post{}, nil
	}
	all = all[offset:]
	if uint64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) SetPostStatus(_ context.Context, postID entity.Ref, status entity.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}

	p, ok := s.posts[postID]
	if !ok {
		return fmt.Errorf("post %d: %w", postID, forum.ErrNotFound)
	}
	p.Status = status
	p.UpdatedAt = s.now()
	return nil
}

func (s *Store) DeletePost(_ context.Context, postID entity.Ref) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}

	if _, ok := s.posts[postID]; !ok {
		return false, nil
	}
	for id, c := range s.comments {
		if c.PostID == postID {
			s.deleteReactions(entity.CommentTarget(id))
			delete(s.comments, id)
		}
	}
	s.deleteReactions(entity.PostTarget(postID))
	delete(s.posts, postID)
	return true, nil
}

func (s *Store) CommentAuthors(_ context.Context, postID entity.Ref) ([]entity.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}

	seen := make(map[entity.Ref]struct{})
	var authors []entity.Ref
	for _, c := range s.sortedComments(postID, true) {
		if _, ok := seen[c.UserID]; !ok {
			seen[c.UserID] = struct{}{}
			authors = append(authors, c.UserID)
		}
	}
	return authors, nil
}

func (s *Store) deleteReactions(t entity.Target) {
	for k := range s.reactions {
		if k.target == t {
			delete(s.reactions, k)
		}
	}
}

func (s *Store) CreateComment(_ context.Context, c *entity.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}

	if _, ok := s.posts[c.PostID]; !ok {
		return fmt.Errorf("post %d: %w", c.PostID, forum.ErrNotFound)
	}

	c.ID = s.id()
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	s.comments[c.ID] = &cp
	return nil
}

func (s *Store) FindComment(_ context.Context, commentID entity.Ref) (*entity.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}

	c, ok := s.comments[commentID]
	if !ok {
		return nil, fmt.Errorf("comment %d: %w", commentID, forum.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *Store) FindComments(_ context.Context, postID entity.Ref, includeInactive bool) ([]*entity.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}

	return s.sortedComments(postID, includeInactive), nil
}

func (s *Store) sortedComments(postID entity.Ref, includeInactive bool) []*entity.Comment {
	out := make([]*entity.Comment, 0)
	for _, c := range s.comments {
		if c.PostID == postID && (includeInactive || c.Status == entity.StatusActive) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) UpdateCommentContent(_ context.Context, c *entity.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}

	stored, ok := s.comments[c.ID]
	if !ok {
		return fmt.Errorf("comment %d: %w", c.ID, forum.ErrNotFound)
	}
	stored.Content = c.Content
	stored.UpdatedAt = s.now()
	c.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *Store) SetCommentStatus(_ context.Context, c *entity.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}

	stored, ok := s.comments[c.ID]
	if !ok {
		return fmt.Errorf("comment %d: %w", c.ID, forum.ErrNotFound)
	}
	stored.Status = c.Status
	stored.UpdatedAt = s.now()
	c.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *Store) DeleteComment(_ context.Context, commentID entity.Ref) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}

	if _, ok := s.comments[commentID]; !ok {
		return false, nil
	}
	s.deleteReactions(entity.CommentTarget(commentID))
	delete(s.comments, commentID)
	return true, nil
}
