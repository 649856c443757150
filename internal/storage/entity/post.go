package entity

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
)

type Post struct {
	IdentifiableEntity
	UserID    Ref
	Title     string
	Content   string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPost(ID ID, userID Ref, title, content string) *Post {
	return &Post{IdentifiableEntity: IdentifiableEntity{ID}, UserID: userID, Title: title, Content: content, Status: StatusActive}
}

func CreatePost(ctx context.Context, tx pgx.Tx, p *Post) error {
	return Query(
		ctx,
		tx,
		`insert into post (user_id, title, content, status) values ($1, $2, $3, $4) returning id, created_at, updated_at`,
		[]interface{}{p.UserID, p.Title, p.Content, p.Status},
		[]interface{}{&p.ID, &p.CreatedAt, &p.UpdatedAt},
	)
}

func FindPost(ctx context.Context, tx pgx.Tx, p *Post) error {
	return Query(
		ctx,
		tx,
		`select id, user_id, title, content, status, created_at, updated_at from post where id = $1`,
		[]interface{}{p.ID},
		[]interface{}{&p.ID, &p.UserID, &p.Title, &p.Content, &p.Status, &p.CreatedAt, &p.UpdatedAt},
	)
}

func FindPosts(ctx context.Context, tx pgx.Tx, offset uint32, limit uint64, includeInactive bool) ([]*Post, error) {
	p := make([]*Post, 0, limit)
	q, err := tx.Query(
		ctx,
		`select id, user_id, title, content, status, created_at, updated_at from post where $3 or status = 'active' order by id desc limit $1 offset $2`,
		limit, offset, includeInactive,
	)
	if err != nil {
		return nil, err
	}

	defer q.Close()
	for q.Next() {
		ep := &Post{}
		if err := q.Scan(&ep.ID, &ep.UserID, &ep.Title, &ep.Content, &ep.Status, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
			return nil, err
		}

		p = append(p, ep)
	}

	return p, q.Err()
}

func UpdatePostStatus(ctx context.Context, tx pgx.Tx, p *Post) (bool, error) {
	return queryUpdateDelete(
		ctx,
		tx,
		`update post set status = $2, updated_at = now() where id = $1`,
		[]interface{}{p.ID, p.Status},
	)
}

func DeletePost(ctx context.Context, tx pgx.Tx, p *Post) (bool, error) {
	return queryUpdateDelete(
		ctx,
		tx,
		`delete from post where id = $1`,
		[]interface{}{p.ID},
	)
}
