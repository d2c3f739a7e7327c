package optset_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flowscan/optset"
)

func newWatchStore(t *testing.T, watcher *optset.WatcherConfig) *optset.Store[int, Feature] {
	order := make([]string, 0)
	logMu := sync.Mutex{}
	store, err := optset.New(optset.Config[int, Feature]{
		Identifier: "WatchStore",
		Layers: []optset.Layer[int, Feature]{
			NewRecordingLayer("origin", &order, &logMu),
		},
		Watcher: watcher,
	})
	assert.Nil(t, err)
	return store
}

func receiveSet(t *testing.T, c <-chan optset.Set[Feature]) optset.Set[Feature] {
	select {
	case set := <-c:
		return set
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for a watch notification")
		return optset.Empty[Feature]()
	}
}

func TestWatch(t *testing.T) {
	store := newWatchStore(t, &optset.WatcherConfig{Buffer: 4})

	c := store.Watch(7)
	saved := optset.Of(FeatureAlpha, FeatureDelta)
	store.Save(7, saved)

	assert.Equal(t, saved, receiveSet(t, c))

	// saves of other keys don't notify this watcher
	store.Save(8, optset.Of(FeatureBeta))
	select {
	case <-c:
		t.Fatalf("received a notification for an unwatched key")
	case <-time.After(50 * time.Millisecond):
	}

	assert.Nil(t, store.Unwatch(c))
	assert.Equal(t, optset.ErrUnknownWatcher, store.Unwatch(c))

	// unwatched channels are closed
	_, open := <-c
	assert.False(t, open)
}

func TestWatchCtx(t *testing.T) {
	store := newWatchStore(t, &optset.WatcherConfig{Buffer: 4})

	ctx, cancel := context.WithCancel(context.Background())
	c := store.WatchCtx(ctx, 3)

	saved := optset.Of(FeatureGamma)
	store.Save(3, saved)
	assert.Equal(t, saved, receiveSet(t, c))

	cancel()

	// the subscription is torn down and the channel closed
	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-c:
			if !open {
				return
			}
		case <-deadline:
			t.Fatalf("watch channel not closed after context cancellation")
		}
	}
}

func TestWatchOverflowIgnore(t *testing.T) {
	store := newWatchStore(t, &optset.WatcherConfig{Buffer: 1, OverflowBehaviour: optset.OverflowBehaviourIgnore})

	c := store.Watch(1)
	first := optset.Of(FeatureAlpha)
	store.Save(1, first)
	store.Save(1, optset.Of(FeatureBeta)) // dropped, the buffer is full

	assert.Equal(t, first, receiveSet(t, c))

	third := optset.Of(FeatureGamma)
	store.Save(1, third)
	assert.Equal(t, third, receiveSet(t, c))

	assert.Nil(t, store.Unwatch(c))
}

func TestWatchOverflowWait(t *testing.T) {
	store := newWatchStore(t, &optset.WatcherConfig{Buffer: 1, OverflowBehaviour: optset.OverflowBehaviourWait})

	c := store.Watch(1)
	first := optset.Of(FeatureAlpha)
	store.Save(1, first)

	// the buffer is full, the overflowing save waits for the subscriber
	second := optset.Of(FeatureBeta)
	saved := make(chan struct{})
	go func() {
		store.Save(1, second)
		close(saved)
	}()

	select {
	case <-saved:
		t.Fatalf("save returned before the subscriber drained the buffer")
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, first, receiveSet(t, c))
	select {
	case <-saved:
	case <-time.After(time.Second):
		t.Fatalf("save still blocked after the subscriber drained the buffer")
	}
	assert.Equal(t, second, receiveSet(t, c))

	assert.Nil(t, store.Unwatch(c))
}

func TestWatchOverflowWaitUnwatch(t *testing.T) {
	store := newWatchStore(t, &optset.WatcherConfig{Buffer: 1, OverflowBehaviour: optset.OverflowBehaviourWait})

	c := store.Watch(1)
	first := optset.Of(FeatureAlpha)
	store.Save(1, first)

	saved := make(chan struct{})
	go func() {
		store.Save(1, optset.Of(FeatureBeta))
		close(saved)
	}()
	time.Sleep(50 * time.Millisecond)

	// unsubscribing instead of draining releases the waiting save
	done := make(chan error, 1)
	go func() {
		done <- store.Unwatch(c)
	}()
	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(time.Second):
		t.Fatalf("unwatch blocked behind a waiting save")
	}
	select {
	case <-saved:
	case <-time.After(time.Second):
		t.Fatalf("save still blocked after the subscriber unsubscribed")
	}

	// the buffered set is still readable, then the channel is closed
	assert.Equal(t, first, receiveSet(t, c))
	_, open := <-c
	assert.False(t, open)
}

func TestWatchOverflowForceRemove(t *testing.T) {
	store := newWatchStore(t, &optset.WatcherConfig{Buffer: 1, OverflowBehaviour: optset.OverflowBehaviourForceRemove})

	c := store.Watch(1)
	first := optset.Of(FeatureAlpha)
	store.Save(1, first)

	// the buffer is full, the overflowing save removes and closes the subscriber
	store.Save(1, optset.Of(FeatureBeta))

	assert.Equal(t, first, receiveSet(t, c))
	_, open := <-c
	assert.False(t, open)

	assert.Equal(t, optset.ErrUnknownWatcher, store.Unwatch(c))
}

func TestStaticWatch(t *testing.T) {
	static, err := optset.NewStatic(optset.Config[optset.StaticKey, Feature]{
		Identifier: "StaticWatch",
		Layers: []optset.Layer[optset.StaticKey, Feature]{
			&staticRecordingLayer{},
		},
		Watcher: &optset.WatcherConfig{Buffer: 1},
	})
	assert.Nil(t, err)

	c := static.Watch()
	saved := optset.Of(FeatureZeta)
	static.Set(saved)
	assert.Equal(t, saved, receiveSet(t, c))
	assert.Nil(t, static.Unwatch(c))
}

// minimal static layer for the watch test
type staticRecordingLayer struct {
	mu   sync.Mutex
	mask Feature
	set  bool
}

func (l *staticRecordingLayer) Identifier() string { return "static" }

func (l *staticRecordingLayer) Get(keys []optset.StaticKey) ([]Feature, []error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]Feature, len(keys))
	errors := make([]error, len(keys))
	for i := range keys {
		if l.set {
			result[i] = l.mask
		} else {
			errors[i] = optset.NewErrNotFound(keys[i])
		}
	}
	return result, errors
}

func (l *staticRecordingLayer) Set(keys []optset.StaticKey, masks []Feature) []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(masks) > 0 {
		l.mask = masks[len(masks)-1]
		l.set = true
	}
	return nil
}
