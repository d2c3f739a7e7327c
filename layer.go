package optset

// Handler is any function that resolves the raw mask for a single key
type Handler[TKey comparable, TFlag Flag] func(key TKey) (TFlag, error)

// BatchHandler is any function that resolves the raw masks for a list of keys
type BatchHandler[TKey comparable, TFlag Flag] func(keys []TKey) ([]TFlag, []error)

// Layer is an interface for mask resolver layers, they take keys and return the
// raw masks stored under them if available. A key that a layer fails to resolve
// will be given to the next layer in the store's chain. Layers traffic in raw
// bit patterns; typed Set values exist only on the caller-facing side of the store.
type Layer[TKey comparable, TFlag Flag] interface {
	// Unique identifier for this layer used for logging and metric purposes
	Identifier() string

	// The function that will be called to load masks for the given set of keys
	Get(keys []TKey) ([]TFlag, []error)

	// The function that will be called to store masks, both on explicit saves
	// and when priming this layer with masks resolved by the layers after it
	Set(keys []TKey, masks []TFlag) []error
}
