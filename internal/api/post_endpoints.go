package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"pkg.mon.icu/forum/internal/storage/entity"
)

// registerGetPost GET /posts/:id
func (a *API) registerGetPost() {
	a.router.GET("/posts/:id", func(c *gin.Context) {
		var param idParam
		if err := c.ShouldBindUri(&param); err != nil {
			a.abort(c, badRequest(err))
			return
		}

		t, err := a.posts.Get(c.Request.Context(), actor(c), param.ID)
		if err != nil {
			a.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, newThreadModel(t))
	})
}

// registerGetPosts GET /posts?page=
func (a *API) registerGetPosts() {
	a.router.GET("/posts", func(c *gin.Context) {
		var query struct {
			Page uint32 `form:"page"`
		}
		if err := c.ShouldBindQuery(&query); err != nil {
			a.abort(c, badRequest(err))
			return
		}

		posts, err := a.posts.List(c.Request.Context(), actor(c), query.Page)
		if err != nil {
			a.abort(c, err)
			return
		}

		pm := make([]*postModel, len(posts))
		for i, p := range posts {
			pm[i] = newPostModel(p.Post, p.Counters)
		}
		c.JSON(http.StatusOK, pm)
	})
}

// registerPostPost POST /posts
func (a *API) registerPostPost() {
	a.router.POST("/posts", func(c *gin.Context) {
		var body struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			a.abort(c, badRequest(err))
			return
		}

		p, err := a.posts.Create(c.Request.Context(), actor(c), body.Title, body.Content)
		if err != nil {
			a.abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, newPostModel(p, &entity.Counters{}))
	})
}

// registerDeletePost DELETE /posts/:id
func (a *API) registerDeletePost() {
	a.router.DELETE("/posts/:id", func(c *gin.Context) {
		var param idParam
		if err := c.ShouldBindUri(&param); err != nil {
			a.abort(c, badRequest(err))
			return
		}

		if err := a.posts.Delete(c.Request.Context(), actor(c), param.ID); err != nil {
			a.abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

type statusBody struct {
	Status entity.Status `json:"status"`
}

// registerPutPostStatus PUT /posts/:id/status
func (a *API) registerPutPostStatus() {
	a.router.PUT("/posts/:id/status", func(c *gin.Context) {
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

		p, err := a.posts.SetStatus(c.Request.Context(), actor(c), param.ID, body.Status)
		if err != nil {
			a.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, newPostModel(p, nil))
	})
}
