package extension

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flowscan/optset"
)

// Logger is an extension that logs loads and saves for debugging, including
// per-layer timings keyed by trace ID
type Logger[TKey comparable, TFlag optset.Flag] struct {
	store            string
	layerLoadStartAt map[string]map[uint64]time.Time
	layerSaveStartAt map[string]map[uint64]time.Time
	mu               sync.Mutex
}

func (e *Logger[TKey, TFlag]) Name() string { return "Logger" }

func (e *Logger[TKey, TFlag]) InitializationHook(store *optset.Store[TKey, TFlag], layers []optset.Layer[TKey, TFlag]) error {
	e.store = store.Identifier()
	e.layerLoadStartAt = make(map[string]map[uint64]time.Time)
	e.layerSaveStartAt = make(map[string]map[uint64]time.Time)
	for _, layer := range layers {
		e.layerLoadStartAt[layer.Identifier()] = make(map[uint64]time.Time)
		e.layerSaveStartAt[layer.Identifier()] = make(map[uint64]time.Time)
	}
	log.Debug().Str("store", e.store).Msgf("store initialized with %v layers", len(layers))
	return nil
}

func (e *Logger[TKey, TFlag]) PreLoadHook(traceID uint64, keys []TKey) []error {
	log.Debug().Str("store", e.store).Uint64("trace", traceID).Msgf("loading start: %v", keys)
	return nil
}

func (e *Logger[TKey, TFlag]) PostLoadHook(traceID uint64, keys []TKey, masks []TFlag, errors []error) {
	log.Debug().Str("store", e.store).Uint64("trace", traceID).Msgf("loading finish: %b (errors: %v)", masks, errors)
}

func (e *Logger[TKey, TFlag]) LayerPreLoadHook(traceID uint64, layer optset.Layer[TKey, TFlag], keys []TKey) {
	e.mu.Lock()
	e.layerLoadStartAt[layer.Identifier()][traceID] = time.Now()
	e.mu.Unlock()
	log.Debug().Str("store", e.store).Uint64("trace", traceID).Msgf("loading start at layer %v: %v", layer.Identifier(), keys)
}

func (e *Logger[TKey, TFlag]) LayerPostLoadHook(traceID uint64, layer optset.Layer[TKey, TFlag], keys []TKey, masks []TFlag, errors []error) {
	e.mu.Lock()
	log.Debug().Str("store", e.store).Uint64("trace", traceID).Msgf(
		"loading finish from layer %v: %b (errors: %v) time: %v",
		layer.Identifier(),
		masks,
		errors,
		time.Since(e.layerLoadStartAt[layer.Identifier()][traceID]).Milliseconds(),
	)
	delete(e.layerLoadStartAt[layer.Identifier()], traceID)
	e.mu.Unlock()
}

func (e *Logger[TKey, TFlag]) PreSaveHook(traceID uint64, keys []TKey, masks []TFlag) []error {
	log.Debug().Str("store", e.store).Uint64("trace", traceID).Msgf("saving start: keys: %v masks: %b", keys, masks)
	return nil
}

func (e *Logger[TKey, TFlag]) PostSaveHook(traceID uint64, keys []TKey, masks []TFlag, errors [][]error) {
	log.Debug().Str("store", e.store).Uint64("trace", traceID).Msgf("saving finish: keys: %v masks: %b (errors: %v)", keys, masks, errors)
}

func (e *Logger[TKey, TFlag]) LayerPreSaveHook(traceID uint64, layer optset.Layer[TKey, TFlag], keys []TKey, masks []TFlag) {
	e.mu.Lock()
	e.layerSaveStartAt[layer.Identifier()][traceID] = time.Now()
	e.mu.Unlock()
	log.Debug().Str("store", e.store).Uint64("trace", traceID).Msgf("saving start at layer %v: keys: %v masks: %b", layer.Identifier(), keys, masks)
}

func (e *Logger[TKey, TFlag]) LayerPostSaveHook(traceID uint64, layer optset.Layer[TKey, TFlag], keys []TKey, masks []TFlag, errors []error) {
	e.mu.Lock()
	log.Debug().Str("store", e.store).Uint64("trace", traceID).Msgf(
		"saving finish at layer %v: keys: %v masks: %b errors: %v time: %v",
		layer.Identifier(),
		keys,
		masks,
		errors,
		time.Since(e.layerSaveStartAt[layer.Identifier()][traceID]).Milliseconds(),
	)
	delete(e.layerSaveStartAt[layer.Identifier()], traceID)
	e.mu.Unlock()
}
