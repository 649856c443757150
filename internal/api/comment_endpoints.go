package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"pkg.mon.icu/forum/internal/storage/entity"
)

type contentBody struct {
	Content string `json:"content"`
}

// registerPostComment POST /posts/:id/comments
func (a *API) registerPostComment() {
	a.router.POST("/posts/:id/comments", func(c *gin.Context) {
		var param idParam
		var body contentBody
		if err := c.ShouldBindUri(&param); err != nil {
			a.abort(c, badRequest(err))
			return
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			a.abort(c, badRequest(err))
			return
		}

		cm, err := a.comments.Create(c.Request.Context(), actor(c), param.ID, body.Content)
		if err != nil {
			a.abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, newCommentModel(cm, &entity.Counters{}))
	})
}

// registerPatchComment PATCH /comments/:id
func (a *API) registerPatchComment() {
	a.router.PATCH("/comments/:id", func(c *gin.Context) {
		var param idParam
		var body contentBody
		if err := c.ShouldBindUri(&param); err != nil {
			a.abort(c, badRequest(err))
			return
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			a.abort(c, badRequest(err))
			return
		}

		cm, err := a.comments.Update(c.Request.Context(), actor(c), param.ID, body.Content)
		if err != nil {
			a.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, newCommentModel(cm, nil))
	})
}

// registerDeleteComment DELETE /comments/:id
func (a *API) registerDeleteComment() {
	a.router.DELETE("/comments/:id", func(c *gin.Context) {
		var param idParam
		if err := c.ShouldBindUri(&param); err != nil {
			a.abort(c, badRequest(err))
			return
		}

		if err := a.comments.Delete(c.Request.Context(), actor(c), param.ID); err != nil {
			a.abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

// registerPutCommentStatus PUT /comments/:id/status
func (a *API) registerPutCommentStatus() {
	a.router.PUT("/comments/:id/status", func(c *gin.Context) {
		var param idParam
		var body statusBody
		if err := c.ShouldBindUri(&param); err != nil {
			a.abort(c, badRequest(err))
			return
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			a.abort(c, badRequest(err))
			return
		}

		cm, err := a.comments.SetStatus(c.Request.Context(), actor(c), param.ID, body.Status)
		if err != nil {
			a.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, newCommentModel(cm, nil))
	})
}
