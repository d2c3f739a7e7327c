package optset

import "sync"

// Save a flag set under the given key to all layers.
// Returns an array of errors with each item representing an error returned by a layer,
// in the configured layer order.
func (r *Store[TKey, TFlag]) Save(key TKey, set Set[TFlag], flags ...SaveFlag) []error {
	return layerErrorsForKey(r.SaveAll([]TKey{key}, []Set[TFlag]{set}, flags...), 0)
}

// Save a batch of flag sets to all layers.
// Returns an array of arrays of errors with the first dimension as the layer
// (in the configured order) and the second dimension as the key.
func (r *Store[TKey, TFlag]) SaveAll(keys []TKey, sets []Set[TFlag], flags ...SaveFlag) [][]error {
	opts := foldSaveFlags(r.defaultSaveFlags, flags)

	masks := make([]TFlag, len(sets))
	for i := range sets {
		masks[i] = sets[i].Raw()
	}

	var layerIndexes []int
	sequential := opts.Has(SaveSequential)
	if sequential {
		var initial, iterationChange, endCondition int
		if opts.Has(SaveAscending) {
			initial = 0
			iterationChange = 1
			endCondition = len(r.layers)
		} else {
			initial = len(r.layers) - 1
			iterationChange = -1
			endCondition = -1
		}
		layerIndexes = make([]int, 0, len(r.layers))
		for layerIndex := initial; layerIndex != endCondition; layerIndex = layerIndex + iterationChange {
			layerIndexes = append(layerIndexes, layerIndex)
		}
	} else {
		layerIndexes = generateSequence(len(r.layers))
	}

	errors := r.save(layerIndexes, keys, masks, sequential)
	r.notifyWatchers(keys, masks, errors)
	return errors
}

func (r *Store[TKey, TFlag]) save(layerIndexes []int, keys []TKey, masks []TFlag, sequential bool) [][]error {
	var traceID uint64 = r.getTraceID()
	var errors = make([][]error, len(r.layers))

	// execute pre-save hooks, keys vetoed by a hook are excluded from the batch
	// and their veto error is reported at every layer's position
	var vetoes []error
	var allowed []int
	layerKeys, layerMasks := keys, masks
	if len(r.preSaveHooks) > 0 {
		vetoes = make([]error, len(keys))
		for _, hook := range r.preSaveHooks {
			mergeErrors(vetoes, hook.PreSaveHook(traceID, keys, masks))
		}
		allowed = make([]int, 0, len(keys))
		for i := range keys {
			if vetoes[i] == nil {
				allowed = append(allowed, i)
			}
		}
		if len(allowed) < len(keys) {
			layerKeys = extract(keys, allowed)
			layerMasks = extract(masks, allowed)
		} else {
			allowed = nil
		}
	}

	if sequential {
		for _, layerIndex := range layerIndexes {
			errors[layerIndex] = r.layerSave(traceID, layerIndex, layerKeys, layerMasks)
		}
	} else {
		wg := sync.WaitGroup{}
		wg.Add(len(layerIndexes))
		for _, layerIndex := range layerIndexes {
			capturedLayerIndex := layerIndex
			go func() {
				defer wg.Done()
				errors[capturedLayerIndex] = r.layerSave(traceID, capturedLayerIndex, layerKeys, layerMasks)
			}()
		}
		wg.Wait()
	}

	// expand the error rows back to the original key positions
	if allowed != nil {
		for layerIndex := range errors {
			row := make([]error, len(keys))
			copy(row, vetoes)
			if errors[layerIndex] != nil {
				mergeWithIndexes(row, errors[layerIndex], allowed)
			}
			errors[layerIndex] = row
		}
	}

	// execute post-save hooks
	for _, hook := range r.postSaveHooks {
		hook.PostSaveHook(traceID, keys, masks, errors)
	}

	return errors
}

func (r *Store[TKey, TFlag]) layerSave(traceID uint64, layerIndex int, keys []TKey, masks []TFlag) []error {
	layer := r.layers[layerIndex]

	for _, hook := range r.layerPreSaveHooks {
		hook.LayerPreSaveHook(traceID, layer, keys, masks)
	}

	errors := layer.Set(keys, masks)

	for _, hook := range r.layerPostSaveHooks {
		hook.LayerPostSaveHook(traceID, layer, keys, masks, errors)
	}

	return errors
}

// take the layer-by-key error matrix of SaveAll and extract one key's column
func layerErrorsForKey(errors [][]error, keyIndex int) []error {
	result := make([]error, len(errors))
	for i, layerErrors := range errors {
		if len(layerErrors) > keyIndex {
			result[i] = layerErrors[keyIndex]
		}
	}
	return result
}
