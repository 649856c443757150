// Package events is the per-post registry of live-update subscribers and the fan-out of
// comment, status and reaction events to them.
//
// The registry is in-memory and single-process. Delivery is best effort: a frame that a
// subscriber cannot take right now is dropped for that subscriber only. A subscription lives
// until its unsubscribe function is called or the Bus is closed; a stream that never
// disconnects keeps its handle until process exit.
package events

import (
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"pkg.mon.icu/forum/internal/metrics"
)

// Sink is one subscriber's live-update channel. Send must not block.
type Sink interface {
	Send(frame []byte) error
}

type handle struct {
	id   string
	sink Sink
}

type Bus struct {
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	posts  map[string]map[string]*handle
	closed bool
}

func NewBus(logger *zap.SugaredLogger, m *metrics.Metrics) *Bus {
	return &Bus{
		logger:  logger,
		metrics: m,
		posts:   make(map[string]map[string]*handle),
	}
}

// Subscribe registers sink for the events of postID. The returned function removes exactly this
// subscription; calling it more than once is harmless.
func (b *Bus) Subscribe(postID string, sink Sink) (unsubscribe func()) {
	h := &handle{id: uuid.NewString(), sink: sink}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		closeSink(sink)
		return func() {}
	}

	subs, ok := b.posts[postID]
	if !ok {
		subs = make(map[string]*handle)
		b.posts[postID] = subs
	}
	subs[h.id] = h
	b.mu.Unlock()

	b.metrics.Subscribers.Inc()
	b.logger.Debugf("Subscriber %s joined post %s.", h.id, postID)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(postID, h.id) })
	}
}

func (b *Bus) remove(postID, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.posts[postID]
	if !ok {
		return
	}
	if _, ok := subs[id]; !ok {
		return
	}

	delete(subs, id)
	if len(subs) == 0 {
		delete(b.posts, postID)
	}
	b.metrics.Subscribers.Dec()
	b.logger.Debugf("Subscriber %s left post %s.", id, postID)
}

// Broadcast delivers ev to every current subscriber of postID. It never fails: a post without
// subscribers is a no-op and per-subscriber send errors are dropped.
func (b *Bus) Broadcast(postID string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.posts[postID]
	if len(subs) == 0 {
		return
	}

	frame, err := Frame(ev)
	if err != nil {
		b.logger.Errorf("Couldn't serialise %s event for post %s: %s.", ev.EventType(), postID, err)
		return
	}

	for id, h := range subs {
		if err := h.sink.Send(frame); err != nil {
			b.metrics.DroppedFramesTotal.Inc()
			b.logger.Debugf("Dropped %s event for subscriber %s of post %s: %s.", ev.EventType(), id, postID, err)
		}
	}
	b.metrics.BroadcastsTotal.WithLabelValues(string(ev.EventType())).Inc()
}

// Len returns the number of subscribers of postID.
func (b *Bus) Len(postID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.posts[postID])
}

// Posts returns the keys of all posts that have at least one subscriber.
func (b *Bus) Posts() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.posts))
	for k := range b.posts {
		keys = append(keys, k)
	}
	return keys
}

// Close drops every subscription, closing sinks that implement io.Closer so that their streams
// end. Later subscriptions are closed immediately and broadcasts find nobody.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var n int
	for postID, subs := range b.posts {
		for _, h := range subs {
			closeSink(h.sink)
			n++
		}
		delete(b.posts, postID)
	}
	b.metrics.Subscribers.Sub(float64(n))
	b.logger.Debugf("Closed event bus, dropped %d subscribers.", n)
	return nil
}

func closeSink(s Sink) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}
