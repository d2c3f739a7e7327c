package optset

import "time"

// Configuration for a store
type Config[TKey comparable, TFlag Flag] struct {
	// Identifier for this store
	Identifier string

	// The mask resolver layers for this store, consulted from the first to the last
	Layers []Layer[TKey, TFlag]

	// Configuration for the batcher, if not included batching will be disabled
	Batcher *BatcherConfig

	// Configuration for watch subscriptions, if not included watchers get unbuffered
	// channels and the ignore overflow behaviour
	Watcher *WatcherConfig

	// Default load flags
	DefaultLoadFlags LoadFlag

	// Default save flags
	DefaultSaveFlags SaveFlag

	// Array of extensions to be used
	Extensions []Extension
}

// Configuration for the batcher
type BatcherConfig struct {
	// Wait is how long to wait before sending a batch
	Wait time.Duration

	// MaxBatch will limit the maximum number of keys to send in one batch, 0 = no limit
	MaxBatch int
}

// Configuration for watch subscriptions
type WatcherConfig struct {
	// Buffer is the buffer size used for the subscriber channels
	Buffer int

	// OverflowBehaviour is the expected behaviour when a subscriber channel is full
	OverflowBehaviour OverflowBehaviour
}
