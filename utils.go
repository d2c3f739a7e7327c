package optset

import (
	"sync"
)

// Convert a handler into a batch handler, each key will be handled in parallel
func Batchify[TKey comparable, TFlag Flag](f Handler[TKey, TFlag]) BatchHandler[TKey, TFlag] {
	return func(keys []TKey) ([]TFlag, []error) {
		masks := make([]TFlag, len(keys))
		errors := make([]error, len(keys))
		wg := sync.WaitGroup{}
		for i := range keys {
			wg.Add(1)
			capturedIndex := i
			go func() {
				defer wg.Done()
				mask, err := f(keys[capturedIndex])
				if err != nil {
					errors[capturedIndex] = err
				} else {
					masks[capturedIndex] = mask
				}
			}()
		}
		wg.Wait()
		return masks, errors
	}
}

// Convert a batch handler to a single handler
func Singlify[TKey comparable, TFlag Flag](f BatchHandler[TKey, TFlag]) Handler[TKey, TFlag] {
	return func(key TKey) (TFlag, error) {
		keys := []TKey{key}
		result, errors := f(keys)
		if len(errors) > 0 && errors[0] != nil {
			return zero[TFlag](), errors[0]
		}
		return result[0], nil
	}
}

// Return the zero value of the given generic type
func zero[T any]() T {
	var zero T
	return zero
}
