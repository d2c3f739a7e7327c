package optset_test

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowscan/optset"
	"github.com/flowscan/optset/layer"
)

// Feature is the mask enumeration used by the store tests
type Feature uint32

const (
	FeatureAlpha Feature = 1 << iota
	FeatureBeta
	FeatureGamma
	FeatureDelta
	FeatureEpsilon
	FeatureZeta
)

// deterministic mask for a key so backends can be stateless, every value below
// 64 is some combination of the six flags above
func maskFor(key int) Feature {
	return Feature(uint32(key) % 64)
}

// create a simple int -> Feature store with 2 layers, an in-memory cache and a
// backend that derives masks from keys with a fake delay
func newFeatureMockStore(t *testing.T, wait time.Duration) (*optset.Store[int, Feature], *FeatureBackend) {
	backend := &FeatureBackend{fakeDelay: wait}
	store, err := optset.New(optset.Config[int, Feature]{
		Identifier: "FeatureMockStore",
		Batcher: &optset.BatcherConfig{
			Wait:     wait / 2,
			MaxBatch: 256,
		},
		Layers: []optset.Layer[int, Feature]{
			layer.NewMemory[int, Feature](layer.MemoryConfig{Retention: 10 * time.Hour}),
			backend,
		},
	})
	if err != nil {
		t.Fatalf("failed to create mock feature store: %v", err)
	}

	return store, backend
}

// backend resolving the deterministic mask of every key
type FeatureBackend struct {
	fakeDelay time.Duration
	batches   int32
}

func (s *FeatureBackend) Identifier() string { return "FeatureBackend" }

func (s *FeatureBackend) Get(keys []int) ([]Feature, []error) {
	atomic.AddInt32(&s.batches, 1)
	time.Sleep(s.fakeDelay)
	result := make([]Feature, len(keys))
	for i, k := range keys {
		result[i] = maskFor(k)
	}
	return result, nil
}

func (s *FeatureBackend) Set(keys []int, masks []Feature) []error { return nil }

func (s *FeatureBackend) Batches() int32 { return atomic.LoadInt32(&s.batches) }

// backend recording the exact key set of every batch it resolves
type BatchRecordingBackend struct {
	mu      sync.Mutex
	batches [][]int
}

func (s *BatchRecordingBackend) Identifier() string { return "batchrecording" }

func (s *BatchRecordingBackend) Get(keys []int) ([]Feature, []error) {
	s.mu.Lock()
	s.batches = append(s.batches, append([]int(nil), keys...))
	s.mu.Unlock()
	result := make([]Feature, len(keys))
	for i, k := range keys {
		result[i] = maskFor(k)
	}
	return result, nil
}

func (s *BatchRecordingBackend) Set(keys []int, masks []Feature) []error { return nil }

func (s *BatchRecordingBackend) Batches() [][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]int(nil), s.batches...)
}

// backend that only resolves a key with the given probability
type UnstableBackend struct {
	fakeDelay          time.Duration
	successProbability float64
}

func (s UnstableBackend) Identifier() string { return "unstable" }

func (s UnstableBackend) Get(keys []int) ([]Feature, []error) {
	time.Sleep(s.fakeDelay)
	result := make([]Feature, len(keys))
	errors := make([]error, len(keys))
	for i, k := range keys {
		if rand.Float64() < s.successProbability {
			result[i] = maskFor(k)
		} else {
			errors[i] = fmt.Errorf("unstable backend miss")
		}
	}
	return result, errors
}

func (s UnstableBackend) Set(keys []int, masks []Feature) []error { return nil }

// backend that only holds masks for even keys
type EvenOnlyBackend struct {
	fakeDelay time.Duration
}

func (s EvenOnlyBackend) Identifier() string { return "evenonly" }

func (s EvenOnlyBackend) Get(keys []int) ([]Feature, []error) {
	time.Sleep(s.fakeDelay)
	result := make([]Feature, len(keys))
	errors := make([]error, len(keys))
	for i, k := range keys {
		if k%2 == 0 {
			result[i] = maskFor(k)
		} else {
			errors[i] = optset.NewErrNotFound(k)
		}
	}
	return result, errors
}

func (s EvenOnlyBackend) Set(keys []int, masks []Feature) []error { return nil }

// backend whose masks change with its version, for cache freshness tests
type VersionedBackend struct {
	version int32
}

func (s *VersionedBackend) Identifier() string { return "versioned" }

func (s *VersionedBackend) SetVersion(v int32) { atomic.StoreInt32(&s.version, v) }

func (s *VersionedBackend) Get(keys []int) ([]Feature, []error) {
	version := atomic.LoadInt32(&s.version)
	result := make([]Feature, len(keys))
	for i, k := range keys {
		result[i] = maskFor(k + int(version))
	}
	return result, nil
}

func (s *VersionedBackend) Set(keys []int, masks []Feature) []error { return nil }

// map-backed layer that appends its identifier to a shared log on every Set,
// for asserting save ordering
type RecordingLayer struct {
	id    string
	mu    sync.Mutex
	data  map[int]Feature
	order *[]string
	logMu *sync.Mutex
}

func NewRecordingLayer(id string, order *[]string, logMu *sync.Mutex) *RecordingLayer {
	return &RecordingLayer{
		id:    id,
		data:  make(map[int]Feature),
		order: order,
		logMu: logMu,
	}
}

func (l *RecordingLayer) Identifier() string { return l.id }

func (l *RecordingLayer) Get(keys []int) ([]Feature, []error) {
	result := make([]Feature, len(keys))
	errors := make([]error, len(keys))
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, k := range keys {
		if v, ok := l.data[k]; ok {
			result[i] = v
		} else {
			errors[i] = optset.NewErrNotFound(k)
		}
	}
	return result, errors
}

func (l *RecordingLayer) Set(keys []int, masks []Feature) []error {
	l.mu.Lock()
	for i, k := range keys {
		l.data[k] = masks[i]
	}
	l.mu.Unlock()
	l.logMu.Lock()
	*l.order = append(*l.order, l.id)
	l.logMu.Unlock()
	return nil
}

func (l *RecordingLayer) Stored(key int) (Feature, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.data[key]
	return v, ok
}
