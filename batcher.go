package optset

import (
	"sync"
	"time"
)

// Batcher coalesces single-key mask loads into windowed batches
type Batcher[TKey comparable, TFlag Flag] struct {
	// the resolver for the batched requests
	resolver BatchHandler[TKey, TFlag]

	// how long to wait before sending a batch
	wait time.Duration

	// this will limit the maximum number of keys to send in one batch, 0 = no limit
	maxBatch int

	// the current batch. keys will continue to be collected until the wait window
	// closes or the batch limit is hit, then everything is sent to the resolver
	// and out to the listeners
	batch *loaderBatch[TKey, TFlag]

	// mutex to prevent races
	mu sync.Mutex
}

// Create a new batcher backed by the given resolver
func NewBatcher[TKey comparable, TFlag Flag](resolver BatchHandler[TKey, TFlag], config BatcherConfig) *Batcher[TKey, TFlag] {
	return &Batcher[TKey, TFlag]{
		resolver: resolver,
		wait:     config.Wait,
		maxBatch: config.MaxBatch,
	}
}

type loaderBatch[TKey comparable, TFlag Flag] struct {
	keys    []TKey
	masks   []TFlag
	errors  []error
	closing bool
	done    chan struct{}
}

// Load a mask by key, batching will be applied automatically
func (l *Batcher[TKey, TFlag]) Load(key TKey) (TFlag, error) {
	return l.LoadThunk(key)()
}

// LoadThunk returns a function that when called will block waiting for the batch result.
// This method should be used if you want one goroutine to make requests to many
// different batchers without blocking until the thunk is called.
func (l *Batcher[TKey, TFlag]) LoadThunk(key TKey) func() (TFlag, error) {
	return l.loadThunk(key, true)
}

// LoadAll fetches many keys at once through the batching window
func (l *Batcher[TKey, TFlag]) LoadAll(keys []TKey) ([]TFlag, []error) {
	return l.loadAll(keys, true)
}

// LoadAllThunk returns a function that when called will block waiting for the masks
func (l *Batcher[TKey, TFlag]) LoadAllThunk(keys []TKey) func() ([]TFlag, []error) {
	thunks := make([]func() (TFlag, error), len(keys))
	for i, key := range keys {
		thunks[i] = l.LoadThunk(key)
	}
	return func() ([]TFlag, []error) {
		masks := make([]TFlag, len(keys))
		errors := make([]error, len(keys))
		for i, thunk := range thunks {
			masks[i], errors[i] = thunk()
		}
		return masks, errors
	}
}

// with share disabled the key opens a fresh batch instead of joining the
// in-flight one, later loads may still join the fresh batch
func (l *Batcher[TKey, TFlag]) loadThunk(key TKey, share bool) func() (TFlag, error) {
	l.mu.Lock()
	if l.batch == nil || !share {
		l.batch = &loaderBatch[TKey, TFlag]{done: make(chan struct{})}
	}
	batch := l.batch
	pos := batch.keyIndex(l, key)
	l.mu.Unlock()

	return func() (TFlag, error) {
		<-batch.done

		var mask TFlag
		if pos < len(batch.masks) {
			mask = batch.masks[pos]
		}

		// a single error applies to the whole batch, otherwise errors are positional
		var err error
		if len(batch.errors) == 1 {
			err = batch.errors[0]
		} else if batch.errors != nil {
			err = batch.errors[pos]
		}

		return mask, err
	}
}

func (l *Batcher[TKey, TFlag]) loadAll(keys []TKey, share bool) ([]TFlag, []error) {
	thunks := make([]func() (TFlag, error), len(keys))
	for i, key := range keys {
		thunks[i] = l.loadThunk(key, share)
		share = true // only the first key needs to force the fresh batch
	}

	masks := make([]TFlag, len(keys))
	errors := make([]error, len(keys))
	for i, thunk := range thunks {
		masks[i], errors[i] = thunk()
	}
	return masks, errors
}

// keyIndex will return the location of the key in the batch, if its not found
// it will add the key to the batch
func (b *loaderBatch[TKey, TFlag]) keyIndex(l *Batcher[TKey, TFlag], key TKey) int {
	for i, existingKey := range b.keys {
		if key == existingKey {
			return i
		}
	}

	pos := len(b.keys)
	b.keys = append(b.keys, key)
	if pos == 0 {
		go b.startTimer(l)
	}

	if l.maxBatch != 0 && pos >= l.maxBatch-1 {
		if !b.closing {
			b.closing = true
			l.batch = nil
			go b.resolveBatch(l)
		}
	}

	return pos
}

func (b *loaderBatch[TKey, TFlag]) startTimer(l *Batcher[TKey, TFlag]) {
	time.Sleep(l.wait)
	l.mu.Lock()

	// we must have hit the batch limit and are already finalizing this batch
	if b.closing {
		l.mu.Unlock()
		return
	}

	// only detach if this batch is still the open one
	if l.batch == b {
		l.batch = nil
	}
	l.mu.Unlock()

	b.resolveBatch(l)
}

func (b *loaderBatch[TKey, TFlag]) resolveBatch(l *Batcher[TKey, TFlag]) {
	b.masks, b.errors = l.resolver(b.keys)
	close(b.done)
}
