package entity

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
)

type Comment struct {
	IdentifiableEntity
	PostID    Ref
	UserID    Ref
	Content   string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewComment(ID ID, postID, userID Ref, content string, status Status) *Comment {
	return &Comment{IdentifiableEntity: IdentifiableEntity{ID}, PostID: postID, UserID: userID, Content: content, Status: status}
}

func CreateComment(ctx context.Context, tx pgx.Tx, c *Comment) error {
	return Query(
		ctx,
		tx,
		`insert into comment (post_id, user_id, content, status) values ($1, $2, $3, $4) returning id, created_at, updated_at`,
		[]interface{}{c.PostID, c.UserID, c.Content, c.Status},
		[]interface{}{&c.ID, &c.CreatedAt, &c.UpdatedAt},
	)
}

func FindComment(ctx context.Context, tx pgx.Tx, c *Comment) error {
	return Query(
		ctx,
		tx,
		`select id, post_id, user_id, content, status, created_at, updated_at from comment where id = $1`,
		[]interface{}{c.ID},
		[]interface{}{&c.ID, &c.PostID, &c.UserID, &c.Content, &c.Status, &c.CreatedAt, &c.UpdatedAt},
	)
}

func FindComments(ctx context.Context, tx pgx.Tx, p *Post, includeInactive bool) ([]*Comment, error) {
	c := make([]*Comment, 0)
	q, err := tx.Query(
		ctx,
		`select id, post_id, user_id, content, status, created_at, updated_at from comment where post_id = $1 and ($2 or status = 'active') order by id`,
		p.ID, includeInactive,
	)
	if err != nil {
		return nil, err
	}

	defer q.Close()
	for q.Next() {
		ec := &Comment{}
		if err := q.Scan(&ec.ID, &ec.PostID, &ec.UserID, &ec.Content, &ec.Status, &ec.CreatedAt, &ec.UpdatedAt); err != nil {
			return nil, err
		}

		c = append(c, ec)
	}

	return c, q.Err()
}

func UpdateCommentContent(ctx context.Context, tx pgx.Tx, c *Comment) error {
	return Query(
		ctx,
		tx,
		`update comment set content = $2, updated_at = now() where id = $1 returning updated_at`,
		[]interface{}{c.ID, c.Content},
		[]interface{}{&c.UpdatedAt},
	)
}

func UpdateCommentStatus(ctx context.Context, tx pgx.Tx, c *Comment) error {
	return Query(
		ctx,
		tx,
		`update comment set status = $2, updated_at = now() where id = $1 returning updated_at`,
		[]interface{}{c.ID, c.Status},
		[]interface{}{&c.UpdatedAt},
	)
}

func DeleteComment(ctx context.Context, tx pgx.Tx, c *Comment) (bool, error) {
	return queryUpdateDelete(
		ctx,
		tx,
		`delete from comment where id = $1`,
		[]interface{}{c.ID},
	)
}
