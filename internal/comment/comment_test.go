package comment

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pkg.mon.icu/forum/internal/events"
	"pkg.mon.icu/forum/internal/forum"
	"pkg.mon.icu/forum/internal/metrics"
	"pkg.mon.icu/forum/internal/rating"
	"pkg.mon.icu/forum/internal/storage/entity"
	"pkg.mon.icu/forum/internal/storage/memory"
)

type heldNotifier struct {
	held []*entity.Comment
}

func (n *heldNotifier) CommentHeld(c *entity.Comment) {
	n.held = append(n.held, c)
}

type fixture struct {
	ctx   context.Context
	store *memory.Store
	bus   *events.Bus
	svc   *Service

	author, other, admin forum.Actor
	post                 *entity.Post
	sink                 *events.ChannelSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop().Sugar()
	m := metrics.New(nil)
	store := memory.New()
	bus := events.NewBus(logger, m)

	f := &fixture{
		ctx:   ctx,
		store: store,
		bus:   bus,
		svc:   NewService(logger, store, rating.NewAggregator(logger, m, store), bus),
	}
	for _, u := range []struct {
		name string
		role entity.Role
		into *forum.Actor
	}{
		{"author", entity.RoleUser, &f.author},
		{"other", entity.RoleUser, &f.other},
		{"admin", entity.RoleAdmin, &f.admin},
	} {
		created, err := store.CreateUser(ctx, u.name, u.role)
		require.NoError(t, err)
		*u.into = forum.NewActor(created.ID, created.Role)
	}

	f.post = entity.NewPost(0, f.author.UserID, "title", "content")
	require.NoError(t, store.CreatePost(ctx, f.post))

	f.sink = events.NewChannelSink(16)
	bus.Subscribe(events.PostKey(f.post.ID), f.sink)
	return f
}

func (f *fixture) events(t *testing.T) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for {
		select {
		case frame := <-f.sink.C():
			var ev map[string]interface{}
			body := strings.TrimSuffix(strings.TrimPrefix(string(frame), "data: "), "\n\n")
			require.NoError(t, json.Unmarshal([]byte(body), &ev))
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(f.ctx, f.other, f.post.ID, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Content)
	assert.Equal(t, entity.StatusActive, c.Status)
	assert.NotZero(t, c.ID)

	evs := f.events(t)
	require.Len(t, evs, 1)
	assert.Equal(t, "created", evs[0]["type"])
	comment := evs[0]["comment"].(map[string]interface{})
	assert.Equal(t, float64(c.ID), comment["id"])
	assert.Equal(t, "hello", comment["content"])
}

func TestCreate_validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, f.other, f.post.ID, "   ")
	assert.ErrorIs(t, err, forum.ErrInvalidArgument)

	_, err = f.svc.Create(f.ctx, f.other, f.post.ID, strings.Repeat("ж", MaxContentLength+1))
	assert.ErrorIs(t, err, forum.ErrInvalidArgument)

	_, err = f.svc.Create(f.ctx, f.other, f.post.ID, strings.Repeat("ж", MaxContentLength))
	assert.NoError(t, err)

	_, err = f.svc.Create(f.ctx, forum.Actor{}, f.post.ID, "hi")
	assert.ErrorIs(t, err, forum.ErrUnauthenticated)

	_, err = f.svc.Create(f.ctx, f.other, 404, "hi")
	assert.ErrorIs(t, err, forum.ErrNotFound)
}

func TestCreate_inactivePost(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetPostStatus(f.ctx, f.post.ID, entity.StatusInactive))

	_, err := f.svc.Create(f.ctx, f.other, f.post.ID, "hi")
	assert.ErrorIs(t, err, forum.ErrForbidden)
}

func TestCreate_held(t *testing.T) {
	f := newFixture(t)
	n := &heldNotifier{}
	f.svc.Hold(regexp.MustCompile(`(?i)casino`), n)

	held, err := f.svc.Create(f.ctx, f.other, f.post.ID, "best CASINO in town")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInactive, held.Status)
	require.Len(t, n.held, 1)
	assert.Equal(t, held.ID, n.held[0].ID)
	assert.Empty(t, f.events(t))

	ok, err := f.svc.Create(f.ctx, f.other, f.post.ID, "nice post")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusActive, ok.Status)
	assert.Len(t, n.held, 1)
	assert.Len(t, f.events(t), 1)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Create(f.ctx, f.other, f.post.ID, "first")
	require.NoError(t, err)
	f.events(t)

	_, err = f.svc.Update(f.ctx, f.author, c.ID, "hijacked")
	assert.ErrorIs(t, err, forum.ErrForbidden)

	updated, err := f.svc.Update(f.ctx, f.other, c.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", updated.Content)

	_, err = f.svc.Update(f.ctx, f.admin, c.ID, "edited by admin")
	require.NoError(t, err)

	stored, err := f.store.FindComment(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited by admin", stored.Content)

	evs := f.events(t)
	require.Len(t, evs, 2)
	assert.Equal(t, "updated", evs[0]["type"])
	assert.Equal(t, float64(c.ID), evs[0]["comment_id"])
	assert.Equal(t, "second", evs[0]["content"])
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Create(f.ctx, f.other, f.post.ID, "doomed")
	require.NoError(t, err)

	_, err = f.store.UpsertReaction(f.ctx, f.author.UserID, entity.CommentTarget(c.ID), entity.ReactionLike)
	require.NoError(t, err)
	require.NoError(t, f.store.SetUserRating(f.ctx, f.other.UserID, 1))
	f.events(t)

	assert.ErrorIs(t, f.svc.Delete(f.ctx, f.author, c.ID), forum.ErrForbidden)
	require.NoError(t, f.svc.Delete(f.ctx, f.other, c.ID))
	assert.ErrorIs(t, f.svc.Delete(f.ctx, f.other, c.ID), forum.ErrNotFound)

	assert.Equal(t, 0, f.store.Reactions())
	u, err := f.store.FindUser(f.ctx, f.other.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.Rating)

	evs := f.events(t)
	require.Len(t, evs, 1)
	assert.Equal(t, "deleted", evs[0]["type"])
	assert.Equal(t, float64(c.ID), evs[0]["comment_id"])
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Create(f.ctx, f.other, f.post.ID, "spam?")
	require.NoError(t, err)
	f.events(t)

	_, err = f.svc.SetStatus(f.ctx, f.other, c.ID, entity.StatusInactive)
	assert.ErrorIs(t, err, forum.ErrForbidden)

	_, err = f.svc.SetStatus(f.ctx, f.admin, c.ID, "hidden")
	assert.ErrorIs(t, err, forum.ErrInvalidArgument)

	hidden, err := f.svc.SetStatus(f.ctx, f.admin, c.ID, entity.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInactive, hidden.Status)

	_, err = f.svc.SetStatus(f.ctx, f.admin, c.ID, entity.StatusInactive)
	require.NoError(t, err)

	evs := f.events(t)
	require.Len(t, evs, 1, "setting the same status again is not broadcast")
	assert.Equal(t, "status", evs[0]["type"])
	assert.Equal(t, float64(c.ID), evs[0]["comment_id"])
	assert.Equal(t, "inactive", evs[0]["status"])
	assert.NotContains(t, evs[0], "post_id")
}

func TestHeldComment_staysInvisible(t *testing.T) {
	f := newFixture(t)
	f.svc.Hold(regexp.MustCompile(`spam`), nil)

	held, err := f.svc.Create(f.ctx, f.other, f.post.ID, "spam here")
	require.NoError(t, err)
	require.Equal(t, entity.StatusInactive, held.Status)

	updated, err := f.svc.Update(f.ctx, f.other, held.ID, "still hidden text")
	require.NoError(t, err)
	assert.Equal(t, "still hidden text", updated.Content)
	assert.Empty(t, f.events(t), "editing a held comment is not shown to viewers")

	require.NoError(t, f.svc.Delete(f.ctx, f.other, held.ID))
	assert.Empty(t, f.events(t), "deleting a held comment is not shown to viewers")
}
