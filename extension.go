package optset

// Extension interface is the base interface used for extensions
type Extension interface {
	Name() string // The extension name
}

// Extensions that hook on store initialization
type InitializationHookExtension[TKey comparable, TFlag Flag] interface {
	InitializationHook(store *Store[TKey, TFlag], layers []Layer[TKey, TFlag]) error
}

// Extensions that hook before a batched mask load. A non-nil error at a key's
// position vetoes resolution for that key and is returned to the caller.
type PreLoadHookExtension[TKey comparable, TFlag Flag] interface {
	PreLoadHook(traceID uint64, keys []TKey) []error
}

// Extensions that hook after a batched mask load
type PostLoadHookExtension[TKey comparable, TFlag Flag] interface {
	PostLoadHook(traceID uint64, keys []TKey, masks []TFlag, errors []error)
}

// Extensions that hook before a batched mask load from a layer
type LayerPreLoadHookExtension[TKey comparable, TFlag Flag] interface {
	LayerPreLoadHook(traceID uint64, layer Layer[TKey, TFlag], keys []TKey)
}

// Extensions that hook after a batched mask load from a layer
type LayerPostLoadHookExtension[TKey comparable, TFlag Flag] interface {
	LayerPostLoadHook(traceID uint64, layer Layer[TKey, TFlag], keys []TKey, masks []TFlag, errors []error)
}

// Extensions that hook before a mask save. A non-nil error at a key's position
// vetoes the save for that key and is reported at every layer's position.
type PreSaveHookExtension[TKey comparable, TFlag Flag] interface {
	PreSaveHook(traceID uint64, keys []TKey, masks []TFlag) []error
}

// Extensions that hook after a mask save, errors are indexed by layer then key
type PostSaveHookExtension[TKey comparable, TFlag Flag] interface {
	PostSaveHook(traceID uint64, keys []TKey, masks []TFlag, errors [][]error)
}

// Extensions that hook before a mask save to a layer, including layer priming
// during loads
type LayerPreSaveHookExtension[TKey comparable, TFlag Flag] interface {
	LayerPreSaveHook(traceID uint64, layer Layer[TKey, TFlag], keys []TKey, masks []TFlag)
}

// Extensions that hook after a mask save to a layer
type LayerPostSaveHookExtension[TKey comparable, TFlag Flag] interface {
	LayerPostSaveHook(traceID uint64, layer Layer[TKey, TFlag], keys []TKey, masks []TFlag, errors []error)
}
