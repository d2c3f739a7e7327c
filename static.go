package optset

// a static store doesn't have any keys, therefore we need to mock the key in
// the static store API.
// StaticKey is the placeholder key type used by keyless stores, layers for a
// static store are declared over it.
type StaticKey struct{}

// StaticStore is a special type of store where a key is not required to fetch
// data, used for a single application-wide mask such as a feature toggle set
type StaticStore[TFlag Flag] struct {
	store *Store[StaticKey, TFlag]
}

// Create a new static mask store with the given configuration
func NewStatic[TFlag Flag](config Config[StaticKey, TFlag]) (*StaticStore[TFlag], error) {
	store, err := New(config)
	if err != nil {
		return nil, err
	}
	return &StaticStore[TFlag]{store: store}, nil
}

// Get the flag set from the store
func (r *StaticStore[TFlag]) Get(flags ...LoadFlag) (Set[TFlag], error) {
	return r.store.Load(StaticKey{}, flags...)
}

// Set the flag set on all of the layers.
// Returns an array of errors with each item representing an error returned by a layer.
func (r *StaticStore[TFlag]) Set(set Set[TFlag], flags ...SaveFlag) []error {
	return r.store.Save(StaticKey{}, set, flags...)
}

// Watch subscribes to changes of the stored flag set
func (r *StaticStore[TFlag]) Watch() <-chan Set[TFlag] {
	return r.store.Watch(StaticKey{})
}

// Remove a subscription created by Watch
func (r *StaticStore[TFlag]) Unwatch(c <-chan Set[TFlag]) error {
	return r.store.Unwatch(c)
}
