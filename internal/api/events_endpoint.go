package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"pkg.mon.icu/forum/internal/events"
)

const keepAliveInterval = 15 * time.Second

// registerGetPostEvents GET /posts/:id/events
func (a *API) registerGetPostEvents() {
	a.router.GET("/posts/:id/events", func(c *gin.Context) {
		var param idParam
		if err := c.ShouldBindUri(&param); err != nil {
			a.abort(c, badRequest(err))
			return
		}

		if _, err := a.posts.Visible(c.Request.Context(), actor(c), param.ID); err != nil {
			a.abort(c, err)
			return
		}

		sink := events.NewChannelSink(a.config.EventBuffer)
		unsubscribe := a.bus.Subscribe(events.PostKey(param.ID), sink)
		defer unsubscribe()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		_, _ = c.Writer.WriteString(": subscribed\n\n")
		c.Writer.Flush()

		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		c.Stream(func(w io.Writer) bool {
			select {
			case frame, ok := <-sink.C():
				if !ok {
					return false
				}
				_, err := w.Write(frame)
				return err == nil
			case <-keepAlive.C:
				_, err := io.WriteString(w, ": keep-alive\n\n")
				return err == nil
			case <-c.Request.Context().Done():
				return false
			case <-a.ctx.Done():
				return false
			}
		})
	})
}
