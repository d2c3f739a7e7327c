package optset

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/flowscan/optset/collection/bucket"
	"github.com/flowscan/optset/collection/tuple"
)

// Store is a layered keyed store of flag sets. Loads walk the layer chain from
// the first layer to the last and prime earlier layers with the resolved masks,
// saves write to every layer. The store traffics in typed Set values at its API
// boundary and in raw masks below it.
type Store[TKey comparable, TFlag Flag] struct {
	// identifier for this store
	identifier string

	// mask resolver layers in this store
	layers []Layer[TKey, TFlag]

	// batcher if batching is enabled
	batcher *Batcher[TKey, TFlag]

	// default load flags
	defaultLoadFlags LoadFlag

	// default save flags
	defaultSaveFlags SaveFlag

	// trace counter for trace ID assignment
	traceCounter uint64

	// watch subscription state
	watchBuffer       int
	overflowBehaviour OverflowBehaviour
	subscribers       *bucket.Set[TKey, *watchSub[TFlag]]
	subscriberKeys    map[<-chan Set[TFlag]]tuple.Pair[TKey, *watchSub[TFlag]]
	subscribersMu     sync.Mutex

	// hooks
	initializationHooks []InitializationHookExtension[TKey, TFlag]
	preLoadHooks        []PreLoadHookExtension[TKey, TFlag]
	postLoadHooks       []PostLoadHookExtension[TKey, TFlag]
	layerPreLoadHooks   []LayerPreLoadHookExtension[TKey, TFlag]
	layerPostLoadHooks  []LayerPostLoadHookExtension[TKey, TFlag]
	preSaveHooks        []PreSaveHookExtension[TKey, TFlag]
	postSaveHooks       []PostSaveHookExtension[TKey, TFlag]
	layerPreSaveHooks   []LayerPreSaveHookExtension[TKey, TFlag]
	layerPostSaveHooks  []LayerPostSaveHookExtension[TKey, TFlag]
}

// Create a new mask store with the given configuration
func New[TKey comparable, TFlag Flag](config Config[TKey, TFlag]) (*Store[TKey, TFlag], error) {
	if len(config.Layers) == 0 {
		return nil, fmt.Errorf("store %q needs at least one layer", config.Identifier)
	}

	r := &Store[TKey, TFlag]{
		identifier:       config.Identifier,
		layers:           config.Layers,
		defaultLoadFlags: config.DefaultLoadFlags,
		defaultSaveFlags: config.DefaultSaveFlags,
		subscribers:      bucket.NewSet[TKey, *watchSub[TFlag]](),
		subscriberKeys:   make(map[<-chan Set[TFlag]]tuple.Pair[TKey, *watchSub[TFlag]]),
	}

	if config.Batcher != nil && config.Batcher.MaxBatch > 0 {
		r.batcher = NewBatcher(BatchHandler[TKey, TFlag](func(keys []TKey) ([]TFlag, []error) {
			return r.resolve(keys, false)
		}), *config.Batcher)
	}

	if config.Watcher != nil {
		r.watchBuffer = config.Watcher.Buffer
		r.overflowBehaviour = config.Watcher.OverflowBehaviour
	}

	r.registerExtensions(config.Extensions)

	// Execute initialization hooks
	for _, hook := range r.initializationHooks {
		err := hook.InitializationHook(r, r.layers)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Identifier for this store
func (r *Store[TKey, TFlag]) Identifier() string {
	return r.identifier
}

func (r *Store[TKey, TFlag]) getTraceID() uint64 {
	return atomic.AddUint64(&r.traceCounter, 1)
}

func (r *Store[TKey, TFlag]) registerExtensions(extensions []Extension) {
	r.initializationHooks = make([]InitializationHookExtension[TKey, TFlag], 0)
	r.preLoadHooks = make([]PreLoadHookExtension[TKey, TFlag], 0)
	r.postLoadHooks = make([]PostLoadHookExtension[TKey, TFlag], 0)
	r.layerPreLoadHooks = make([]LayerPreLoadHookExtension[TKey, TFlag], 0)
	r.layerPostLoadHooks = make([]LayerPostLoadHookExtension[TKey, TFlag], 0)
	r.preSaveHooks = make([]PreSaveHookExtension[TKey, TFlag], 0)
	r.postSaveHooks = make([]PostSaveHookExtension[TKey, TFlag], 0)
	r.layerPreSaveHooks = make([]LayerPreSaveHookExtension[TKey, TFlag], 0)
	r.layerPostSaveHooks = make([]LayerPostSaveHookExtension[TKey, TFlag], 0)
	for _, ext := range extensions {
		if ext, ok := ext.(InitializationHookExtension[TKey, TFlag]); ok {
			r.initializationHooks = append(r.initializationHooks, ext)
		}
		if ext, ok := ext.(PreLoadHookExtension[TKey, TFlag]); ok {
			r.preLoadHooks = append(r.preLoadHooks, ext)
		}
		if ext, ok := ext.(PostLoadHookExtension[TKey, TFlag]); ok {
			r.postLoadHooks = append(r.postLoadHooks, ext)
		}
		if ext, ok := ext.(LayerPreLoadHookExtension[TKey, TFlag]); ok {
			r.layerPreLoadHooks = append(r.layerPreLoadHooks, ext)
		}
		if ext, ok := ext.(LayerPostLoadHookExtension[TKey, TFlag]); ok {
			r.layerPostLoadHooks = append(r.layerPostLoadHooks, ext)
		}
		if ext, ok := ext.(PreSaveHookExtension[TKey, TFlag]); ok {
			r.preSaveHooks = append(r.preSaveHooks, ext)
		}
		if ext, ok := ext.(PostSaveHookExtension[TKey, TFlag]); ok {
			r.postSaveHooks = append(r.postSaveHooks, ext)
		}
		if ext, ok := ext.(LayerPreSaveHookExtension[TKey, TFlag]); ok {
			r.layerPreSaveHooks = append(r.layerPreSaveHooks, ext)
		}
		if ext, ok := ext.(LayerPostSaveHookExtension[TKey, TFlag]); ok {
			r.layerPostSaveHooks = append(r.layerPostSaveHooks, ext)
		}
	}
}
