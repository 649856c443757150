package entity

import (
	"fmt"
)

type ID = uint32

type IdentifiableEntity struct {
	ID ID
}

// Ref is a foreign key to an IdentifiableEntity, zero meaning "none".
type Ref = uint32

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// Sign is the contribution of a single reaction of this type to the rating of the target's author.
func (t ReactionType) Sign() int64 {
	switch t {
	case ReactionLike:
		return 1
	case ReactionDislike:
		return -1
	default:
		return 0
	}
}

// ReactionChange describes what a reaction mutation did to the stored row.
type ReactionChange string

const (
	ReactionCreated   ReactionChange = "created"
	ReactionUnchanged ReactionChange = "unchanged"
	ReactionSwitched  ReactionChange = "switched"
	ReactionCleared   ReactionChange = "cleared"
)

// Target points at exactly one post or exactly one comment.
type Target struct {
	PostID    Ref
	CommentID Ref
}

func PostTarget(postID Ref) Target {
	return Target{PostID: postID}
}

func CommentTarget(commentID Ref) Target {
	return Target{CommentID: commentID}
}

func (t Target) Valid() bool {
	return (t.PostID == 0) != (t.CommentID == 0)
}

func (t Target) IsComment() bool {
	return t.CommentID != 0
}

func (t Target) String() string {
	if t.IsComment() {
		return fmt.Sprintf("comment %d", t.CommentID)
	}
	return fmt.Sprintf("post %d", t.PostID)
}

// Counters are read-time aggregates of the reactions on one target.
type Counters struct {
	LikesUp   int64
	LikesDown int64
	// Mine is the reaction of the viewer the counters were computed for, nil if none.
	Mine *ReactionType
}
