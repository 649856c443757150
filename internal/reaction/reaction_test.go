package reaction

import (
	"context"
	"encoding/json"
	"errors"
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

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	bus     *events.Bus
	ratings *rating.Aggregator
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop().Sugar()
	m := metrics.New(nil)
	store := memory.New()
	bus := events.NewBus(logger, m)
	ratings := rating.NewAggregator(logger, m, store)
	return &fixture{
		ctx:     context.Background(),
		store:   store,
		bus:     bus,
		ratings: ratings,
		svc:     NewService(logger, m, store, ratings, bus),
	}
}

func (f *fixture) user(t *testing.T, name string) forum.Actor {
	t.Helper()
	u, err := f.store.CreateUser(f.ctx, name, entity.RoleUser)
	require.NoError(t, err)
	return forum.NewActor(u.ID, u.Role)
}

func (f *fixture) post(t *testing.T, author forum.Actor) *entity.Post {
	t.Helper()
	p := entity.NewPost(0, author.UserID, "title", "content")
	require.NoError(t, f.store.CreatePost(f.ctx, p))
	return p
}

func (f *fixture) comment(t *testing.T, author forum.Actor, p *entity.Post, status entity.Status) *entity.Comment {
	t.Helper()
	c := entity.NewComment(0, p.ID, author.UserID, "comment", status)
	require.NoError(t, f.store.CreateComment(f.ctx, c))
	return c
}

func (f *fixture) rating(t *testing.T, a forum.Actor) int64 {
	t.Helper()
	u, err := f.store.FindUser(f.ctx, a.UserID)
	require.NoError(t, err)
	return u.Rating
}

func (f *fixture) subscribe(p *entity.Post) *events.ChannelSink {
	sink := events.NewChannelSink(16)
	f.bus.Subscribe(events.PostKey(p.ID), sink)
	return sink
}

func drain(t *testing.T, sink *events.ChannelSink) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for {
		select {
		case frame := <-sink.C():
			var ev map[string]interface{}
			body := strings.TrimSuffix(strings.TrimPrefix(string(frame), "data: "), "\n\n")
			require.NoError(t, json.Unmarshal([]byte(body), &ev))
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestSetReaction_sameTypeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, "a"), f.user(t, "b")
	p := f.post(t, a)
	sink := f.subscribe(p)

	first, err := f.svc.SetReaction(f.ctx, b, entity.PostTarget(p.ID), entity.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, entity.ReactionCreated, first.Change)

	second, err := f.svc.SetReaction(f.ctx, b, entity.PostTarget(p.ID), entity.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, entity.ReactionUnchanged, second.Change)
	assert.Equal(t, entity.ReactionLike, second.Type)
	assert.Equal(t, entity.PostTarget(p.ID), second.Target)

	assert.Equal(t, 1, f.store.Reactions())
	assert.Equal(t, first.Counters.LikesUp, second.Counters.LikesUp)
	assert.Equal(t, first.Counters.LikesDown, second.Counters.LikesDown)
	require.NotNil(t, second.Counters.Mine)
	assert.Equal(t, entity.ReactionLike, *second.Counters.Mine)

	assert.Len(t, drain(t, sink), 1, "an unchanged reaction is not broadcast")
}

func TestSetReaction_switchType(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, "a"), f.user(t, "b")
	p := f.post(t, a)
	target := entity.PostTarget(p.ID)

	before, err := f.svc.SetReaction(f.ctx, b, target, entity.ReactionLike)
	require.NoError(t, err)

	after, err := f.svc.SetReaction(f.ctx, b, target, entity.ReactionDislike)
	require.NoError(t, err)

	assert.Equal(t, entity.ReactionSwitched, after.Change)
	assert.Equal(t, 1, f.store.Reactions())
	assert.Equal(t, before.Counters.LikesUp-1, after.Counters.LikesUp)
	assert.Equal(t, before.Counters.LikesDown+1, after.Counters.LikesDown)
	assert.Equal(t, entity.ReactionDislike, *after.Counters.Mine)
	assert.Equal(t, int64(-1), f.rating(t, a))
}

func TestClearReaction_isIdempotent(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, "a"), f.user(t, "b")
	p := f.post(t, a)
	target := entity.PostTarget(p.ID)
	sink := f.subscribe(p)

	out, err := f.svc.ClearReaction(f.ctx, b, target)
	require.NoError(t, err)
	assert.Equal(t, entity.ReactionUnchanged, out.Change)
	assert.Equal(t, int64(0), out.Counters.LikesUp)
	assert.Equal(t, int64(0), out.Counters.LikesDown)
	assert.Empty(t, drain(t, sink))

	_, err = f.svc.SetReaction(f.ctx, b, target, entity.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.rating(t, a))

	out, err = f.svc.ClearReaction(f.ctx, b, target)
	require.NoError(t, err)
	assert.Equal(t, entity.ReactionCleared, out.Change)
	assert.Nil(t, out.Counters.Mine)
	assert.Equal(t, 0, f.store.Reactions())
	assert.Equal(t, int64(0), f.rating(t, a))
	assert.Len(t, drain(t, sink), 2)
}

func TestSetReaction_forbiddenOnInactiveComment(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, "a"), f.user(t, "b")
	p := f.post(t, a)
	c := f.comment(t, a, p, entity.StatusInactive)
	sink := f.subscribe(p)

	_, err := f.svc.SetReaction(f.ctx, b, entity.CommentTarget(c.ID), entity.ReactionLike)
	assert.ErrorIs(t, err, forum.ErrForbidden)
	assert.Equal(t, 0, f.store.Reactions())
	assert.Empty(t, drain(t, sink))
}

func TestClearReaction_hiddenCommentIsNotBroadcast(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, "a"), f.user(t, "b")
	p := f.post(t, a)
	c := f.comment(t, a, p, entity.StatusActive)
	target := entity.CommentTarget(c.ID)

	_, err := f.svc.SetReaction(f.ctx, b, target, entity.ReactionLike)
	require.NoError(t, err)
	c.Status = entity.StatusInactive
	require.NoError(t, f.store.SetCommentStatus(f.ctx, c))
	sink := f.subscribe(p)

	out, err := f.svc.ClearReaction(f.ctx, b, target)
	require.NoError(t, err)
	assert.Equal(t, entity.ReactionCleared, out.Change)
	assert.Equal(t, 0, f.store.Reactions())
	assert.Equal(t, int64(0), f.rating(t, a))
	assert.Empty(t, drain(t, sink))
}

func TestSetReaction_forbiddenOnCommentOfInactivePost(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, "a"), f.user(t, "b")
	p := f.post(t, a)
	c := f.comment(t, a, p, entity.StatusActive)
	require.NoError(t, f.store.SetPostStatus(f.ctx, p.ID, entity.StatusInactive))

	_, err := f.svc.SetReaction(f.ctx, b, entity.CommentTarget(c.ID), entity.ReactionLike)
	assert.ErrorIs(t, err, forum.ErrForbidden)

	_, err = f.svc.SetReaction(f.ctx, b, entity.PostTarget(p.ID), entity.ReactionLike)
	assert.ErrorIs(t, err, forum.ErrForbidden)
}

func TestSetReaction_invalidArguments(t *testing.T) {
	f := newFixture(t)
	b := f.user(t, "b")

	// the store would fail every call, so reaching it shows up as ErrStoreUnavailable
	f.store.Fail(errors.New("unreachable"))

	_, err := f.svc.SetReaction(f.ctx, b, entity.Target{}, entity.ReactionLike)
	assert.ErrorIs(t, err, forum.ErrInvalidArgument)

	_, err = f.svc.SetReaction(f.ctx, b, entity.Target{PostID: 1, CommentID: 1}, entity.ReactionLike)
	assert.ErrorIs(t, err, forum.ErrInvalidArgument)

	_, err = f.svc.SetReaction(f.ctx, b, entity.PostTarget(1), "love")
	assert.ErrorIs(t, err, forum.ErrInvalidArgument)

	_, err = f.svc.ClearReaction(f.ctx, b, entity.Target{})
	assert.ErrorIs(t, err, forum.ErrInvalidArgument)

	_, err = f.svc.SetReaction(f.ctx, forum.Actor{}, entity.PostTarget(1), entity.ReactionLike)
	assert.ErrorIs(t, err, forum.ErrUnauthenticated)
}

func TestSetReaction_notFound(t *testing.T) {
	f := newFixture(t)
	b := f.user(t, "b")

	_, err := f.svc.SetReaction(f.ctx, b, entity.PostTarget(404), entity.ReactionLike)
	assert.ErrorIs(t, err, forum.ErrNotFound)

	_, err = f.svc.ClearReaction(f.ctx, b, entity.CommentTarget(404))
	assert.ErrorIs(t, err, forum.ErrNotFound)
}

func TestSetReaction_storeUnavailable(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, "a"), f.user(t, "b")
	p := f.post(t, a)

	f.store.Fail(errors.New("connection refused"))
	_, err := f.svc.SetReaction(f.ctx, b, entity.PostTarget(p.ID), entity.ReactionLike)
	assert.ErrorIs(t, err, forum.ErrStoreUnavailable)
}

type recordingRatings struct {
	refreshed []entity.Ref
}

func (r *recordingRatings) Refresh(_ context.Context, userID entity.Ref) {
	r.refreshed = append(r.refreshed, userID)
}

func TestSetReaction_refreshesAuthorNotActor(t *testing.T) {
	f := newFixture(t)
	ratings := &recordingRatings{}
	f.svc.ratings = ratings
	a, b := f.user(t, "a"), f.user(t, "b")
	p := f.post(t, a)
	c := f.comment(t, b, p, entity.StatusActive)

	_, err := f.svc.SetReaction(f.ctx, b, entity.PostTarget(p.ID), entity.ReactionLike)
	require.NoError(t, err)
	_, err = f.svc.SetReaction(f.ctx, a, entity.CommentTarget(c.ID), entity.ReactionDislike)
	require.NoError(t, err)

	assert.Equal(t, []entity.Ref{a.UserID, b.UserID}, ratings.refreshed)
}

func TestSetReaction_selfReactionAllowed(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a")
	p := f.post(t, a)

	out, err := f.svc.SetReaction(f.ctx, a, entity.PostTarget(p.ID), entity.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, entity.ReactionCreated, out.Change)
	assert.Equal(t, int64(1), f.rating(t, a))
}

func TestRatingEqualsSum(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a")
	voters := []forum.Actor{f.user(t, "v1"), f.user(t, "v2"), f.user(t, "v3")}
	p1, p2 := f.post(t, a), f.post(t, a)
	c := f.comment(t, a, p1, entity.StatusActive)
	targets := []entity.Target{entity.PostTarget(p1.ID), entity.PostTarget(p2.ID), entity.CommentTarget(c.ID)}

	steps := []struct {
		voter int
		t     int
		typ   entity.ReactionType
	}{
		{0, 0, entity.ReactionLike},
		{1, 0, entity.ReactionDislike},
		{2, 1, entity.ReactionLike},
		{0, 2, entity.ReactionDislike},
		{1, 0, entity.ReactionLike},
		{2, 2, entity.ReactionDislike},
		{0, 0, ""},
		{2, 1, entity.ReactionDislike},
	}

	for i, step := range steps {
		var err error
		if step.typ == "" {
			_, err = f.svc.ClearReaction(f.ctx, voters[step.voter], targets[step.t])
		} else {
			_, err = f.svc.SetReaction(f.ctx, voters[step.voter], targets[step.t], step.typ)
		}
		require.NoError(t, err, "step %d", i)

		var want int64
		for _, tg := range targets {
			cnt, err := f.store.CountReactions(f.ctx, tg, 0)
			require.NoError(t, err)
			want += cnt.LikesUp - cnt.LikesDown
		}
		assert.Equal(t, want, f.rating(t, a), "step %d", i)
	}
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.user(t, "a"), f.user(t, "b"), f.user(t, "c")
	p := f.post(t, a)
	sink := f.subscribe(p)

	liked, err := f.svc.SetReaction(f.ctx, b, entity.PostTarget(p.ID), entity.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, entity.ReactionCreated, liked.Change)
	assert.Equal(t, int64(1), liked.Counters.LikesUp)

	disliked, err := f.svc.SetReaction(f.ctx, c, entity.PostTarget(p.ID), entity.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, int64(1), disliked.Counters.LikesDown)

	assert.Equal(t, int64(0), f.rating(t, a))

	evs := drain(t, sink)
	require.Len(t, evs, 2)
	for i, want := range []struct{ up, down float64 }{{1, 0}, {1, 1}} {
		assert.Equal(t, "reaction", evs[i]["type"])
		assert.Equal(t, float64(p.ID), evs[i]["post_id"])
		assert.Equal(t, want.up, evs[i]["likes_up_count"])
		assert.Equal(t, want.down, evs[i]["likes_down_count"])
	}
}
