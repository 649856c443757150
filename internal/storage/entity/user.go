package entity

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type User struct {
	IdentifiableEntity
	Username string
	Role     Role
	Rating   int64
}

func NewUser(ID ID, username string, role Role) *User {
	return &User{IdentifiableEntity{ID}, username, role, 0}
}

func CreateUser(ctx context.Context, tx pgx.Tx, u *User) error {
	return Query(
		ctx,
		tx,
		`insert into "user" (username, role) values ($1, $2) returning id`,
		[]interface{}{u.Username, u.Role},
		[]interface{}{&u.ID},
	)
}

func FindUser(ctx context.Context, tx pgx.Tx, u *User) error {
	return Query(
		ctx,
		tx,
		`select id, username, role, rating from "user" where id = $1`,
		[]interface{}{u.ID},
		[]interface{}{&u.ID, &u.Username, &u.Role, &u.Rating},
	)
}

// SumUserReactions returns the signed sum of all reactions received by posts and comments authored by the user.
func SumUserReactions(ctx context.Context, tx pgx.Tx, userID Ref) (int64, error) {
	var sum int64
	if err := Query(
		ctx,
		tx,
		`select
			coalesce((select sum(case r.type when 'like' then 1 when 'dislike' then -1 else 0 end)
				from reaction r join post p on p.id = r.post_id where p.user_id = $1), 0)
			+
			coalesce((select sum(case r.type when 'like' then 1 when 'dislike' then -1 else 0 end)
				from reaction r join comment c on c.id = r.comment_id where c.user_id = $1), 0)`,
		[]interface{}{userID},
		[]interface{}{&sum},
	); err != nil {
		return 0, err
	}

	return sum, nil
}

func UpdateUserRating(ctx context.Context, tx pgx.Tx, userID Ref, rating int64) (bool, error) {
	return queryUpdateDelete(ctx, tx, `update "user" set rating = $2 where id = $1`, []interface{}{userID, rating})
}
