package optset

import (
	"context"
	"errors"
	"sync"

	"github.com/flowscan/optset/collection/tuple"
)

// Behaviour when a subscriber channel is full
type OverflowBehaviour int

const (
	// Ignore if the subscriber channel is full, the subscriber might miss some updates
	OverflowBehaviourIgnore OverflowBehaviour = iota

	// Wait for the subscriber to be able to receive the update
	OverflowBehaviourWait

	// Forcefully removes and closes the subscriber channel
	OverflowBehaviourForceRemove
)

// Returned by Unwatch when the channel is not a live subscription of this store
var ErrUnknownWatcher = errors.New("unknown watch channel")

// one subscription of one key. sendMu serializes sends with the channel close,
// done aborts a blocking send when the subscription is removed mid-notify
type watchSub[TFlag Flag] struct {
	ch     chan Set[TFlag]
	done   chan struct{}
	sendMu sync.Mutex
}

// Watch subscribes to changes of the flag set stored under the given key.
// Every successful save of the key fans out the new set to all of its watchers.
func (r *Store[TKey, TFlag]) Watch(key TKey) <-chan Set[TFlag] {
	sub := &watchSub[TFlag]{
		ch:   make(chan Set[TFlag], r.watchBuffer),
		done: make(chan struct{}),
	}
	r.subscribersMu.Lock()
	r.subscribers.Add(key, sub)
	r.subscriberKeys[sub.ch] = tuple.NewPair(key, sub)
	r.subscribersMu.Unlock()
	return sub.ch
}

// Watch a key until the context is done, then the subscription is removed and
// the channel closed
func (r *Store[TKey, TFlag]) WatchCtx(ctx context.Context, key TKey) <-chan Set[TFlag] {
	c := r.Watch(key)
	go func() {
		<-ctx.Done()
		r.Unwatch(c)
	}()
	return c
}

// Remove a subscription created by Watch and close its channel
func (r *Store[TKey, TFlag]) Unwatch(c <-chan Set[TFlag]) error {
	r.subscribersMu.Lock()
	original, ok := r.subscriberKeys[c]
	if !ok {
		r.subscribersMu.Unlock()
		return ErrUnknownWatcher
	}
	r.subscribers.Remove(original.V1, original.V2)
	delete(r.subscriberKeys, c)
	r.subscribersMu.Unlock()

	sub := original.V2
	// signal first so an in-flight blocking send lets go of sendMu, only then
	// is closing the channel safe
	close(sub.done)
	sub.sendMu.Lock()
	close(sub.ch)
	sub.sendMu.Unlock()
	return nil
}

// fan saved sets out to the subscribers of their keys, skipping keys that no
// layer accepted. the subscriber list is snapshotted so no send ever blocks
// while holding subscribersMu
func (r *Store[TKey, TFlag]) notifyWatchers(keys []TKey, masks []TFlag, saveErrors [][]error) {
	for i, key := range keys {
		if !saveAccepted(saveErrors, i) {
			continue
		}
		r.subscribersMu.Lock()
		subs := r.subscribers.Get(key)
		r.subscribersMu.Unlock()
		if len(subs) == 0 {
			continue
		}
		set := FromRaw(masks[i])
		for _, sub := range subs {
			r.notifySub(key, sub, set)
		}
	}
}

func (r *Store[TKey, TFlag]) notifySub(key TKey, sub *watchSub[TFlag], set Set[TFlag]) {
	sub.sendMu.Lock()
	defer sub.sendMu.Unlock()

	select {
	case <-sub.done:
		// unsubscribed between the snapshot and the send
		return
	default:
	}

	select {
	case sub.ch <- set:
		return
	default:
	}

	switch r.overflowBehaviour {
	case OverflowBehaviourWait:
		select {
		case sub.ch <- set:
		case <-sub.done:
		}
	case OverflowBehaviourForceRemove:
		r.removeSub(key, sub)
	}
}

// remove an overflowing subscriber, called with its sendMu held so closing the
// channel cannot race another send
func (r *Store[TKey, TFlag]) removeSub(key TKey, sub *watchSub[TFlag]) {
	r.subscribersMu.Lock()
	if _, ok := r.subscriberKeys[sub.ch]; !ok {
		r.subscribersMu.Unlock()
		return
	}
	r.subscribers.Remove(key, sub)
	delete(r.subscriberKeys, sub.ch)
	r.subscribersMu.Unlock()
	close(sub.done)
	close(sub.ch)
}

// a save is accepted when at least one layer stored the key without error
func saveAccepted(errors [][]error, keyIndex int) bool {
	for _, layerErrors := range errors {
		if len(layerErrors) == 0 || layerErrors[keyIndex] == nil {
			return true
		}
	}
	return false
}
