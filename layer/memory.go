package layer

import (
	"sync"
	"time"

	"github.com/flowscan/optset"
	"github.com/flowscan/optset/collection/queue"
	"github.com/flowscan/optset/collection/tuple"
)

// Configuration for the memory mask layer
type MemoryConfig struct {
	// The duration masks stay cached, 0 = keep forever
	Retention time.Duration
}

// Memory layer is a map-based in-memory mask cache, it should be used as the
// first line of cache with short retention
type Memory[TKey comparable, TFlag optset.Flag] struct {
	config            MemoryConfig
	data              map[TKey]memoryEntry[TFlag]
	mu                sync.RWMutex
	invalidationQueue *queue.Queue[tuple.Pair[time.Time, TKey]]
}

// a cached mask and the deadline of its newest retention entry, re-saving a key
// moves the deadline so stale queue entries no longer evict it
type memoryEntry[TFlag optset.Flag] struct {
	mask     TFlag
	expireAt time.Time
}

// Create a new in-memory mask layer
func NewMemory[TKey comparable, TFlag optset.Flag](config MemoryConfig) *Memory[TKey, TFlag] {
	l := &Memory[TKey, TFlag]{
		config: config,
		data:   make(map[TKey]memoryEntry[TFlag]),
	}
	if config.Retention > 0 {
		l.startInvalidator()
	}
	return l
}

// Unique identifier for this layer used for logging and metric purposes
func (l *Memory[TKey, TFlag]) Identifier() string { return "memory" }

// The function that will be used to resolve a set of keys
func (l *Memory[TKey, TFlag]) Get(keys []TKey) ([]TFlag, []error) {
	result := make([]TFlag, len(keys))
	errors := make([]error, len(keys))
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i, k := range keys {
		if e, ok := l.data[k]; ok {
			result[i] = e.mask
		} else {
			errors[i] = optset.NewErrNotFound(k)
		}
	}
	return result, errors
}

// The function that will be called on saves and cache priming
func (l *Memory[TKey, TFlag]) Set(keys []TKey, masks []TFlag) []error {
	l.mu.Lock()
	for i, k := range keys {
		entry := memoryEntry[TFlag]{mask: masks[i]}
		if l.config.Retention > 0 {
			entry.expireAt = time.Now().Add(l.config.Retention)
			l.invalidationQueue.Enqueue(tuple.NewPair(entry.expireAt, k))
		}
		l.data[k] = entry
	}
	l.mu.Unlock()
	return nil
}

// deletes expired records from the cache
func (l *Memory[TKey, TFlag]) startInvalidator() {
	l.invalidationQueue = queue.NewQueue[tuple.Pair[time.Time, TKey]](1)
	go func() {
		throttle := newThrottler(500 * time.Millisecond)
		for {
			throttle.Throttle()
			for {
				l.mu.Lock()
				if l.invalidationQueue.Len() == 0 {
					l.mu.Unlock()
					break
				}
				nextJob := l.invalidationQueue.Peek()
				if time.Now().Before(nextJob.V1) {
					l.mu.Unlock()
					break
				}
				l.invalidationQueue.Dequeue()
				// skip entries refreshed past this queue entry's deadline
				if e, ok := l.data[nextJob.V2]; ok && !e.expireAt.After(nextJob.V1) {
					delete(l.data, nextJob.V2)
				}
				l.mu.Unlock()
			}
		}
	}()
}

type throttler struct {
	lastInvoke   time.Time
	throttleTime time.Duration
}

func (t *throttler) Throttle() {
	timePassed := time.Since(t.lastInvoke)
	if timePassed < t.throttleTime {
		time.Sleep(t.throttleTime - timePassed)
	}
	t.lastInvoke = time.Now()
}

func newThrottler(throttleTime time.Duration) *throttler {
	return &throttler{
		lastInvoke:   time.Now(),
		throttleTime: throttleTime,
	}
}
