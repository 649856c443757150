package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"pkg.mon.icu/forum/internal/comment"
	"pkg.mon.icu/forum/internal/events"
	"pkg.mon.icu/forum/internal/post"
	"pkg.mon.icu/forum/internal/reaction"
)

type Config struct {
	Port      uint16
	JwtSecret []byte
	// EventBuffer is the number of frames queued for one event stream.
	EventBuffer int
}

func NewConfig(port uint16, jwtSecret string, eventBuffer int) *Config {
	return &Config{Port: port, JwtSecret: []byte(jwtSecret), EventBuffer: eventBuffer}
}

type API struct {
	ctx    context.Context
	logger *zap.SugaredLogger
	config *Config

	posts     *post.Service
	comments  *comment.Service
	reactions *reaction.Service
	bus       *events.Bus
	gatherer  prometheus.Gatherer

	router *gin.Engine
	serv   *http.Server
}

func NewAPI(
	ctx context.Context,
	logger *zap.SugaredLogger,
	config *Config,
	posts *post.Service,
	comments *comment.Service,
	reactions *reaction.Service,
	bus *events.Bus,
	gatherer prometheus.Gatherer,
) *API {
	a := &API{
		ctx:       ctx,
		logger:    logger,
		config:    config,
		posts:     posts,
		comments:  comments,
		reactions: reactions,
		bus:       bus,
		gatherer:  gatherer,
		router:    gin.New(),
	}
	a.register()
	a.serv = &http.Server{Addr: fmt.Sprintf(":%d", config.Port), Handler: a.Handler()}
	return a
}

func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) register() {
	a.router.Use(gin.Recovery(), a.authenticate)

	a.registerGetPost()
	a.registerGetPosts()
	a.registerPostPost()
	a.registerDeletePost()
	a.registerPutPostStatus()
	a.registerGetPostEvents()

	a.registerPostComment()
	a.registerPatchComment()
	a.registerDeleteComment()
	a.registerPutCommentStatus()

	a.registerPutReaction("/posts/:id/reaction", postTarget)
	a.registerPutReaction("/comments/:id/reaction", commentTarget)
	a.registerDeleteReaction("/posts/:id/reaction", postTarget)
	a.registerDeleteReaction("/comments/:id/reaction", commentTarget)

	a.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))
}

func (a *API) Listen() {
	go func() {
		if err := a.serv.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Errorf("Server returned with error: %s.", err)
			}
		}
	}()
}

func (a *API) Close() error {
	return a.serv.Close()
}
