package api

import (
	"time"

	"pkg.mon.icu/forum/internal/post"
	"pkg.mon.icu/forum/internal/reaction"
	"pkg.mon.icu/forum/internal/storage/entity"
)

// idParam is a path ID; the bound matches the int4 serial columns.
type idParam struct {
	ID entity.Ref `uri:"id" binding:"required,max=2147483647"`
}

type countersModel struct {
	LikesUp   int64                `json:"likes_up_count"`
	LikesDown int64                `json:"likes_down_count"`
	Mine      *entity.ReactionType `json:"my_reaction"`
}

func newCountersModel(c *entity.Counters) *countersModel {
	if c == nil {
		return nil
	}
	return &countersModel{c.LikesUp, c.LikesDown, c.Mine}
}

type postModel struct {
	ID        entity.Ref    `json:"id"`
	UserID    entity.Ref    `json:"user_id"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	Status    entity.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	*countersModel
}

func newPostModel(p *entity.Post, c *entity.Counters) *postModel {
	return &postModel{p.ID, p.UserID, p.Title, p.Content, p.Status, p.CreatedAt, p.UpdatedAt, newCountersModel(c)}
}

type commentModel struct {
	ID        entity.Ref    `json:"id"`
	PostID    entity.Ref    `json:"post_id"`
	UserID    entity.Ref    `json:"user_id"`
	Content   string        `json:"content"`
	Status    entity.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	*countersModel
}

func newCommentModel(c *entity.Comment, cnt *entity.Counters) *commentModel {
	return &commentModel{c.ID, c.PostID, c.UserID, c.Content, c.Status, c.CreatedAt, c.UpdatedAt, newCountersModel(cnt)}
}

type threadModel struct {
	*postModel
	Comments []*commentModel `json:"comments"`
}

func newThreadModel(t *post.Thread) *threadModel {
	cm := make([]*commentModel, len(t.Comments))
	for i, c := range t.Comments {
		cm[i] = newCommentModel(c.Comment, c.Counters)
	}
	return &threadModel{newPostModel(t.Post, t.Counters), cm}
}

type targetModel struct {
	PostID    entity.Ref `json:"post_id,omitempty"`
	CommentID entity.Ref `json:"comment_id,omitempty"`
}

type reactionModel struct {
	Result entity.ReactionChange `json:"result"`
	Target targetModel           `json:"target"`
	Type   entity.ReactionType   `json:"type,omitempty"`
	*countersModel
}

func newReactionModel(o *reaction.Outcome) *reactionModel {
	return &reactionModel{o.Change, targetModel{o.Target.PostID, o.Target.CommentID}, o.Type, newCountersModel(o.Counters)}
}
