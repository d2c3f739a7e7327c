package optset

// Load the flag set stored under the given key
func (r *Store[TKey, TFlag]) Load(key TKey, flags ...LoadFlag) (Set[TFlag], error) {
	opts := foldLoadFlags(r.defaultLoadFlags, flags)
	if r.batcher == nil || opts.HasAny(LoadNoBatch, LoadFresh) {
		fresh := opts.Has(LoadFresh)
		mask, err := Singlify(BatchHandler[TKey, TFlag](func(keys []TKey) ([]TFlag, []error) {
			return r.resolve(keys, fresh)
		}))(key)
		if err != nil {
			return Empty[TFlag](), err
		}
		return FromRaw(mask), nil
	}
	mask, err := r.batcher.loadThunk(key, !opts.Has(LoadNoShare))()
	if err != nil {
		return Empty[TFlag](), err
	}
	return FromRaw(mask), nil
}

// Load the flag sets stored under the given keys, errors are positional
func (r *Store[TKey, TFlag]) LoadAll(keys []TKey, flags ...LoadFlag) ([]Set[TFlag], []error) {
	opts := foldLoadFlags(r.defaultLoadFlags, flags)
	var masks []TFlag
	var errors []error
	if r.batcher == nil || opts.HasAny(LoadNoBatch, LoadFresh) {
		masks, errors = r.resolve(keys, opts.Has(LoadFresh))
	} else {
		masks, errors = r.batcher.loadAll(keys, !opts.Has(LoadNoShare))
	}
	sets := make([]Set[TFlag], len(masks))
	for i, mask := range masks {
		if errors[i] == nil {
			sets[i] = FromRaw(mask)
		}
	}
	return sets, errors
}

// Load raw masks for a set of keys by walking the layer chain from the first
// layer to the last, priming earlier layers with the masks resolved below them.
// With fresh set, cache layers are skipped and only the last layer is consulted
// (the primed caches still receive the result).
func (r *Store[TKey, TFlag]) resolve(keys []TKey, fresh bool) ([]TFlag, []error) {
	var keysCount = len(keys)
	var result = make([]TFlag, keysCount) // array containing the final resolved masks
	var errors = make([]error, keysCount) // array containing errors for each key

	var resultIndexes = generateSequence(keysCount) // indexes from the current layer's array to the original result array
	var layerKeys = keys                            // set of keys to be resolved by the current layer

	var traceID uint64 = r.getTraceID()

	// execute pre-load hooks, keys vetoed by a hook skip layer resolution
	if len(r.preLoadHooks) > 0 {
		for _, hook := range r.preLoadHooks {
			mergeErrors(errors, hook.PreLoadHook(traceID, keys))
		}
		allowed := make([]int, 0, keysCount)
		for i := range keys {
			if errors[i] == nil {
				allowed = append(allowed, i)
			}
		}
		if len(allowed) < keysCount {
			resultIndexes = allowed
			layerKeys = extract(keys, allowed)
		}
	}

	firstLayer := 0
	if fresh {
		firstLayer = len(r.layers) - 1
	}

	// iterate over the layers from the beginning to the end, keys a layer
	// fails to resolve are carried into the next layer
	for layerIndex := firstLayer; layerIndex < len(r.layers); layerIndex++ {
		if len(layerKeys) == 0 {
			break
		}
		layer := r.layers[layerIndex]

		for _, hook := range r.layerPreLoadHooks {
			hook.LayerPreLoadHook(traceID, layer, layerKeys)
		}

		layerMasks, layerErrors := layer.Get(layerKeys)

		for _, hook := range r.layerPostLoadHooks {
			hook.LayerPostLoadHook(traceID, layer, layerKeys, layerMasks, layerErrors)
		}

		resolvedIndexes, resolvedKeys, resolvedMasks, unresolvedIndexes, unresolvedErrors := group(layerKeys, layerMasks, layerErrors)

		if len(resolvedKeys) > 0 {
			resolvedResultIndexes := extract(resultIndexes, resolvedIndexes)

			// merge the resolved masks into the result
			mergeWithIndexes(result, resolvedMasks, resolvedResultIndexes)

			// clear all errors from previous layers
			setZero(errors, resolvedResultIndexes)

			// prime the data on the previous layers
			if layerIndex > 0 {
				for i := layerIndex - 1; i >= 0; i-- {
					capturedIndex := i
					go r.primeLayer(traceID, capturedIndex, resolvedKeys, resolvedMasks)
				}
			}

			// skip going into the next layers if all keys are already resolved
			if len(resolvedKeys) == len(layerKeys) {
				layerKeys = nil
				break
			}
		}

		// carry the unresolved keys and their errors into the next layer
		unresolvedResultIndexes := extract(resultIndexes, unresolvedIndexes)
		mergeWithIndexes(errors, unresolvedErrors, unresolvedResultIndexes)
		layerKeys = extract(layerKeys, unresolvedIndexes)
		resultIndexes = unresolvedResultIndexes
	}

	// execute post-load hooks
	for _, hook := range r.postLoadHooks {
		hook.PostLoadHook(traceID, keys, result, errors)
	}

	return result, errors
}

// store masks resolved by a later layer into an earlier one
func (r *Store[TKey, TFlag]) primeLayer(traceID uint64, layerIndex int, keys []TKey, masks []TFlag) {
	layer := r.layers[layerIndex]
	for _, hook := range r.layerPreSaveHooks {
		hook.LayerPreSaveHook(traceID, layer, keys, masks)
	}
	errors := layer.Set(keys, masks)
	for _, hook := range r.layerPostSaveHooks {
		hook.LayerPostSaveHook(traceID, layer, keys, masks, errors)
	}
}

// split a layer resolver result into its resolved and unresolved halves
func group[TKey comparable, TFlag Flag](keys []TKey, masks []TFlag, errors []error) (
	[]int,
	[]TKey,
	[]TFlag,
	[]int,
	[]error,
) {
	resolvedIndexes := make([]int, 0, len(keys))
	resolvedKeys := make([]TKey, 0, len(keys))
	resolvedMasks := make([]TFlag, 0, len(keys))
	unresolvedIndexes := make([]int, 0)
	unresolvedErrors := make([]error, 0)
	for i := range keys {
		if len(errors) == 0 || errors[i] == nil {
			resolvedIndexes = append(resolvedIndexes, i)
			resolvedKeys = append(resolvedKeys, keys[i])
			resolvedMasks = append(resolvedMasks, masks[i])
		} else {
			unresolvedIndexes = append(unresolvedIndexes, i)
			unresolvedErrors = append(unresolvedErrors, errors[i])
		}
	}
	return resolvedIndexes, resolvedKeys, resolvedMasks, unresolvedIndexes, unresolvedErrors
}

// write the values from the source array into the destination array based on the given indexes
func mergeWithIndexes[T any](destination []T, source []T, indexes []int) {
	for i, dstIndex := range indexes {
		destination[dstIndex] = source[i]
	}
}

// merge errors into the destination array, earlier errors win
func mergeErrors(destination []error, array []error) {
	for i, v := range array {
		if destination[i] == nil && v != nil {
			destination[i] = v
		}
	}
}

// set the elements in the destination array at the given indexes to the zero value
func setZero[T any](destination []T, indexes []int) {
	var zero T
	for _, dstIndex := range indexes {
		destination[dstIndex] = zero
	}
}

// extract an array from the original array using the given indexes
func extract[T any](source []T, indexes []int) []T {
	result := make([]T, len(indexes))
	for i, v := range indexes {
		result[i] = source[v]
	}
	return result
}

// generate a sequence of integers starting from 0
func generateSequence(count int) []int {
	arr := make([]int, count)
	for i := 0; i < count; i++ {
		arr[i] = i
	}
	return arr
}
