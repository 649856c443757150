package entity

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Reaction struct {
	IdentifiableEntity
	UserID Ref
	Target Target
	Type   ReactionType
}

func NewReaction(ID ID, userID Ref, target Target, typ ReactionType) *Reaction {
	return &Reaction{IdentifiableEntity{ID}, userID, target, typ}
}

// ReactionTarget is the part of a post or comment a reaction mutation depends on.
type ReactionTarget struct {
	Target
	AuthorID    Ref
	OwnerPostID Ref
	Status      Status
	// PostStatus is the status of the owning post; equal to Status for post targets.
	PostStatus Status
}

// Active reports whether the target accepts reactions.
func (rt *ReactionTarget) Active() bool {
	return rt.Status == StatusActive && rt.PostStatus == StatusActive
}

func targetColumn(t Target) (string, Ref) {
	if t.IsComment() {
		return "comment_id", t.CommentID
	}
	return "post_id", t.PostID
}

// FindReactionTarget fills rt from its Target, leaving AuthorID zero when the target does not exist.
func FindReactionTarget(ctx context.Context, tx pgx.Tx, rt *ReactionTarget) error {
	if rt.IsComment() {
		return Query(
			ctx,
			tx,
			`select c.user_id, c.post_id, c.status, p.status from comment c join post p on p.id = c.post_id where c.id = $1`,
			[]interface{}{rt.CommentID},
			[]interface{}{&rt.AuthorID, &rt.OwnerPostID, &rt.Status, &rt.PostStatus},
		)
	}

	return Query(
		ctx,
		tx,
		`select user_id, id, status, status from post where id = $1`,
		[]interface{}{rt.PostID},
		[]interface{}{&rt.AuthorID, &rt.OwnerPostID, &rt.Status, &rt.PostStatus},
	)
}

// FindReactionForUpdate locks and loads the reaction of r.UserID on r.Target, leaving ID zero when absent.
func FindReactionForUpdate(ctx context.Context, tx pgx.Tx, r *Reaction) error {
	col, id := targetColumn(r.Target)
	return Query(
		ctx,
		tx,
		`select id, type from reaction where user_id = $1 and `+col+` = $2 for update`,
		[]interface{}{r.UserID, id},
		[]interface{}{&r.ID, &r.Type},
	)
}

// CreateReaction inserts r unless a concurrent insert for the same user and target won, in which case ID stays zero.
func CreateReaction(ctx context.Context, tx pgx.Tx, r *Reaction) error {
	return Query(
		ctx,
		tx,
		`insert into reaction (user_id, post_id, comment_id, type) values ($1, nullif($2, 0), nullif($3, 0), $4) on conflict do nothing returning id`,
		[]interface{}{r.UserID, r.Target.PostID, r.Target.CommentID, r.Type},
		[]interface{}{&r.ID},
	)
}

func UpdateReactionType(ctx context.Context, tx pgx.Tx, r *Reaction) (bool, error) {
	return queryUpdateDelete(ctx, tx, `update reaction set type = $2 where id = $1`, []interface{}{r.ID, r.Type})
}

func DeleteReaction(ctx context.Context, tx pgx.Tx, r *Reaction) (bool, error) {
	col, id := targetColumn(r.Target)
	return queryUpdateDelete(
		ctx,
		tx,
		`delete from reaction where user_id = $1 and `+col+` = $2`,
		[]interface{}{r.UserID, id},
	)
}

func CountReactions(ctx context.Context, tx pgx.Tx, t Target, viewerID Ref) (*Counters, error) {
	col, id := targetColumn(t)
	var (
		c    Counters
		mine string
	)
	if err := Query(
		ctx,
		tx,
		`select
			count(*) filter (where type = 'like'),
			count(*) filter (where type = 'dislike'),
			coalesce(max(case when user_id = $2 then type end), '')
		from reaction where `+col+` = $1`,
		[]interface{}{id, viewerID},
		[]interface{}{&c.LikesUp, &c.LikesDown, &mine},
	); err != nil {
		return nil, err
	}

	if mine != "" {
		m := ReactionType(mine)
		c.Mine = &m
	}

	return &c, nil
}
