package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"pkg.mon.icu/forum/internal/forum"
	"pkg.mon.icu/forum/internal/storage/entity"
	"pkg.mon.icu/forum/internal/util"
)

const actorKey = "forum.actor"

// claims of an access token. The subject is the decimal user ID.
type claims struct {
	Role entity.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// authenticate resolves the bearer token into the request actor. Requests without a token
// proceed anonymously; a token that fails verification is rejected.
func (a *API) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.Next()
		return
	}

	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == header {
		a.abort(c, fmt.Errorf("authorization is not a bearer token: %w", forum.ErrUnauthenticated))
		return
	}

	cl := &claims{}
	if _, err := jwt.ParseWithClaims(raw, cl, func(*jwt.Token) (interface{}, error) {
		return a.config.JwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})); err != nil {
		a.abort(c, fmt.Errorf("%s: %w", err, forum.ErrUnauthenticated))
		return
	}

	userID, err := util.ParseRef(cl.Subject)
	if err != nil {
		a.abort(c, fmt.Errorf("token subject: %s: %w", err, forum.ErrUnauthenticated))
		return
	}
	switch cl.Role {
	case "", entity.RoleUser, entity.RoleAdmin:
	default:
		a.abort(c, fmt.Errorf("token role %q: %w", cl.Role, forum.ErrUnauthenticated))
		return
	}

	c.Set(actorKey, forum.NewActor(userID, cl.Role))
	c.Next()
}

// actor of the request; the zero Actor when anonymous.
func actor(c *gin.Context) forum.Actor {
	if v, ok := c.Get(actorKey); ok {
		return v.(forum.Actor)
	}
	return forum.Actor{}
}
