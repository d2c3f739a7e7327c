package bucket

import "sync"

// Set is a multimap from keys to sets of values, used for keeping per-key
// groups of unique items such as subscriber channels
type Set[TKey comparable, TValue comparable] struct {
	buckets map[TKey]map[TValue]struct{}
	mu      sync.RWMutex
}

// Create a new empty bucket set
func NewSet[TKey comparable, TValue comparable]() *Set[TKey, TValue] {
	return &Set[TKey, TValue]{
		buckets: make(map[TKey]map[TValue]struct{}),
	}
}

// Add a value to the key's bucket
func (s *Set[TKey, TValue]) Add(key TKey, value TValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok {
		b = make(map[TValue]struct{})
		s.buckets[key] = b
	}
	b[value] = struct{}{}
}

// Remove a value from the key's bucket, returns the number of values remaining
// in the bucket
func (s *Set[TKey, TValue]) Remove(key TKey, value TValue) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok {
		return 0
	}
	delete(b, value)
	if len(b) == 0 {
		delete(s.buckets, key)
		return 0
	}
	return len(b)
}

// Get a snapshot of the values in the key's bucket
func (s *Set[TKey, TValue]) Get(key TKey) []TValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.buckets[key]
	values := make([]TValue, 0, len(b))
	for v := range b {
		values = append(values, v)
	}
	return values
}

// Len returns the number of values in the key's bucket
func (s *Set[TKey, TValue]) Len(key TKey) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets[key])
}
