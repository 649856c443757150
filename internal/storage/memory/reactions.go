package memory

import (
	"context"
	"fmt"

	"pkg.mon.icu/forum/internal/forum"
	"pkg.mon.icu/forum/internal/storage/entity"
)

func (s *Store) FindReactionTarget(_ context.Context, t entity.Target) (*entity.ReactionTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}

	rt := &entity.ReactionTarget{Target: t}
	if t.IsComment() {
		c, ok := s.comments[t.CommentID]
		if !ok {
			return nil, fmt.Errorf("%s: %w", t, forum.ErrNotFound)
		}
		p := s.posts[c.PostID]
		rt.AuthorID, rt.OwnerPostID, rt.Status, rt.PostStatus = c.UserID, c.PostID, c.Status, p.Status
		return rt, nil
	}

	p, ok := s.posts[t.PostID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", t, forum.ErrNotFound)
	}
	rt.AuthorID, rt.OwnerPostID, rt.Status, rt.PostStatus = p.UserID, p.ID, p.Status, p.Status
	return rt, nil
}

func (s *Store) UpsertReaction(_ context.Context, userID entity.Ref, t entity.Target, typ entity.ReactionType) (entity.ReactionChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}

	k := reactionKey{userID, t}
	r, ok := s.reactions[k]
	switch {
	case !ok:
		s.reactions[k] = entity.NewReaction(s.id(), userID, t, typ)
		return entity.ReactionCreated, nil
	case r.Type == typ:
		return entity.ReactionUnchanged, nil
	default:
		r.Type = typ
		return entity.ReactionSwitched, nil
	}
}

func (s *Store) DeleteReaction(_ context.Context, userID entity.Ref, t entity.Target) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}

	k := reactionKey{userID, t}
	if _, ok := s.reactions[k]; !ok {
		return false, nil
	}
	delete(s.reactions, k)
	return true, nil
}

func (s *Store) CountReactions(_ context.Context, t entity.Target, viewerID entity.Ref) (*entity.Counters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}

	c := &entity.Counters{}
	for k, r := range s.reactions {
		if k.target != t {
			continue
		}
		switch r.Type {
		case entity.ReactionLike:
			c.LikesUp++
		case entity.ReactionDislike:
			c.LikesDown++
		}
		if viewerID != 0 && k.userID == viewerID {
			mine := r.Type
			c.Mine = &mine
		}
	}
	return c, nil
}

// Reactions returns the number of stored reaction rows.
func (s *Store) Reactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reactions)
}
