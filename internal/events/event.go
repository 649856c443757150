package events

import (
	"encoding/json"
	"time"

	"pkg.mon.icu/forum/internal/storage/entity"
	"pkg.mon.icu/forum/internal/util"
)

type Type string

const (
	TypeCreated  Type = "created"
	TypeUpdated  Type = "updated"
	TypeDeleted  Type = "deleted"
	TypeStatus   Type = "status"
	TypeReaction Type = "reaction"
)

// Event is a payload broadcast to the live viewers of a post. It is serialised as JSON with a
// "type" discriminator and variant specific fields.
type Event interface {
	EventType() Type
}

type Comment struct {
	ID        entity.Ref    `json:"id"`
	PostID    entity.Ref    `json:"post_id"`
	UserID    entity.Ref    `json:"user_id"`
	Content   string        `json:"content"`
	Status    entity.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func wrapComment(c *entity.Comment) Comment {
	return Comment{c.ID, c.PostID, c.UserID, c.Content, c.Status, c.CreatedAt, c.UpdatedAt}
}

type CommentCreated struct {
	Type    Type    `json:"type"`
	Comment Comment `json:"comment"`
}

func NewCommentCreated(c *entity.Comment) *CommentCreated {
	return &CommentCreated{TypeCreated, wrapComment(c)}
}

func (*CommentCreated) EventType() Type { return TypeCreated }

type CommentUpdated struct {
	Type      Type       `json:"type"`
	CommentID entity.Ref `json:"comment_id"`
	Content   string     `json:"content"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewCommentUpdated(c *entity.Comment) *CommentUpdated {
	return &CommentUpdated{TypeUpdated, c.ID, c.Content, c.UpdatedAt}
}

func (*CommentUpdated) EventType() Type { return TypeUpdated }

type CommentDeleted struct {
	Type      Type       `json:"type"`
	CommentID entity.Ref `json:"comment_id"`
}

func NewCommentDeleted(commentID entity.Ref) *CommentDeleted {
	return &CommentDeleted{TypeDeleted, commentID}
}

func (*CommentDeleted) EventType() Type { return TypeDeleted }

// StatusChanged reports a moderation status change of a comment, or of the post itself when
// CommentID is omitted.
type StatusChanged struct {
	Type      Type          `json:"type"`
	PostID    entity.Ref    `json:"post_id,omitempty"`
	CommentID entity.Ref    `json:"comment_id,omitempty"`
	Status    entity.Status `json:"status"`
}

func NewCommentStatusChanged(c *entity.Comment) *StatusChanged {
	return &StatusChanged{Type: TypeStatus, CommentID: c.ID, Status: c.Status}
}

func NewPostStatusChanged(postID entity.Ref, status entity.Status) *StatusChanged {
	return &StatusChanged{Type: TypeStatus, PostID: postID, Status: status}
}

func (*StatusChanged) EventType() Type { return TypeStatus }

type ReactionChanged struct {
	Type           Type       `json:"type"`
	PostID         entity.Ref `json:"post_id,omitempty"`
	CommentID      entity.Ref `json:"comment_id,omitempty"`
	LikesUpCount   int64      `json:"likes_up_count"`
	LikesDownCount int64      `json:"likes_down_count"`
}

func NewReactionChanged(t entity.Target, c *entity.Counters) *ReactionChanged {
	return &ReactionChanged{TypeReaction, t.PostID, t.CommentID, c.LikesUp, c.LikesDown}
}

func (*ReactionChanged) EventType() Type { return TypeReaction }

// PostKey is the registry key of a post.
func PostKey(postID entity.Ref) string {
	return util.FormatRef(postID)
}

// Frame serialises ev as a single server-sent events record.
func Frame(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}
