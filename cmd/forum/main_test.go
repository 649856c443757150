package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"pkg.mon.icu/forum/internal/config"
	"pkg.mon.icu/forum/internal/storage/entity"
	"pkg.mon.icu/forum/internal/util"
)

func memoryConfig(users ...config.MemoryUser) *config.Config {
	c := &config.Config{}
	c.Storage.Driver = config.DriverMemory
	c.Storage.MemoryUsers = users
	c.Logging.Level = zapcore.InfoLevel
	c.Api.JwtSecret = "secret"
	c.Events.Buffer = 4
	c.Rating.ReconcileInterval = time.Minute
	return c
}

func bearer(t *testing.T, subject string, role entity.Role) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject, "role": string(role)}).
		SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Bearer " + s
}

// findUser looks a user up through the concrete store behind a.store.
func findUser(t *testing.T, a *app, userID entity.Ref) (*entity.User, error) {
	t.Helper()
	f, ok := a.store.(interface {
		FindUser(ctx context.Context, userID entity.Ref) (*entity.User, error)
	})
	require.True(t, ok, "store does not implement FindUser")
	return f.FindUser(a.ctx, userID)
}

func TestNewApp_memoryDriverSeedsUsers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := newApp(context.Background(), zap.NewDevelopmentConfig(), zap.NewNop().Sugar(), memoryConfig(
		config.MemoryUser{Username: "alice"},
		config.MemoryUser{Username: "root", Role: entity.RoleAdmin},
	))
	require.NoError(t, err)
	defer a.cancel()

	alice, err := findUser(t, a, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Username)
	assert.Equal(t, entity.RoleUser, alice.Role)

	root, err := findUser(t, a, 2)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, root.Role)

	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"title":"Hello","content":"World"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "1", entity.RoleUser))
	w := httptest.NewRecorder()
	a.api.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID entity.Ref `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodPut, "/posts/"+util.FormatRef(created.ID)+"/reaction", strings.NewReader(`{"type":"like"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "2", entity.RoleAdmin))
	w = httptest.NewRecorder()
	a.api.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	alice, err = findUser(t, a, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice.Rating)
	assert.Empty(t, a.ratings.Pending())
}

func TestNewApp_duplicateMemoryUser(t *testing.T) {
	_, err := newApp(context.Background(), zap.NewDevelopmentConfig(), zap.NewNop().Sugar(), memoryConfig(
		config.MemoryUser{Username: "alice"},
		config.MemoryUser{Username: "alice"},
	))
	assert.Error(t, err)
}

