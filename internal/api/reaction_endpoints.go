package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"pkg.mon.icu/forum/internal/storage/entity"
)

var (
	postTarget    = entity.PostTarget
	commentTarget = entity.CommentTarget
)

// registerPutReaction PUT /posts/:id/reaction, PUT /comments/:id/reaction
func (a *API) registerPutReaction(path string, target func(entity.Ref) entity.Target) {
	a.router.PUT(path, func(c *gin.Context) {
		var param idParam
		var body struct {
			Type entity.ReactionType `json:"type"`
		}
		if err := c.ShouldBindUri(&param); err != nil {
			a.abort(c, badRequest(err))
			return
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			a.abort(c, badRequest(err))
			return
		}

		o, err := a.reactions.SetReaction(c.Request.Context(), actor(c), target(param.ID), body.Type)
		if err != nil {
			a.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, newReactionModel(o))
	})
}

// registerDeleteReaction DELETE /posts/:id/reaction, DELETE /comments/:id/reaction
func (a *API) registerDeleteReaction(path string, target func(entity.Ref) entity.Target) {
	a.router.DELETE(path, func(c *gin.Context) {
		var param idParam
		if err := c.ShouldBindUri(&param); err != nil {
			a.abort(c, badRequest(err))
			return
		}

		o, err := a.reactions.ClearReaction(c.Request.Context(), actor(c), target(param.ID))
		if err != nil {
			a.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, newReactionModel(o))
	})
}
