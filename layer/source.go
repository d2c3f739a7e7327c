package layer

import (
	"github.com/flowscan/optset"
)

// Configuration for a source layer
type SourceConfig[TKey comparable, TFlag optset.Flag] struct {
	// Identifier for this layer, defaults to "source"
	Identifier string

	// Get resolves the masks for a batch of keys
	Get optset.BatchHandler[TKey, TFlag]

	// Set optionally writes masks back to the origin, leave nil for a read-only source
	Set func(keys []TKey, masks []TFlag) []error
}

// Source layer adapts a caller-supplied resolver into the authoritative last
// layer of a store, e.g. an upstream API that deals in raw bitmasks
type Source[TKey comparable, TFlag optset.Flag] struct {
	config SourceConfig[TKey, TFlag]
}

// Create a new source layer from a batch resolver
func NewSource[TKey comparable, TFlag optset.Flag](config SourceConfig[TKey, TFlag]) *Source[TKey, TFlag] {
	if config.Identifier == "" {
		config.Identifier = "source"
	}
	return &Source[TKey, TFlag]{config: config}
}

// Create a new source layer from a single-key resolver, keys of a batch are
// resolved in parallel
func NewSingleSource[TKey comparable, TFlag optset.Flag](identifier string, get optset.Handler[TKey, TFlag]) *Source[TKey, TFlag] {
	return NewSource(SourceConfig[TKey, TFlag]{
		Identifier: identifier,
		Get:        optset.Batchify(get),
	})
}

// Unique identifier for this layer used for logging and metric purposes
func (l *Source[TKey, TFlag]) Identifier() string { return l.config.Identifier }

// The function that will be used to resolve a set of keys
func (l *Source[TKey, TFlag]) Get(keys []TKey) ([]TFlag, []error) {
	return l.config.Get(keys)
}

// The function that will be called on saves and cache priming, a no-op unless
// the source was configured with a write-back
func (l *Source[TKey, TFlag]) Set(keys []TKey, masks []TFlag) []error {
	if l.config.Set == nil {
		return nil
	}
	return l.config.Set(keys, masks)
}
