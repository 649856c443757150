package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"pkg.mon.icu/forum/internal/forum"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, forum.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, forum.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, forum.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, forum.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, forum.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func shouldLogError(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func (a *API) abort(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError && shouldLogError(err) {
		a.logger.Errorf("Request %s %s failed: %s.", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(err error) error {
	return fmt.Errorf("%s: %w", err, forum.ErrInvalidArgument)
}
