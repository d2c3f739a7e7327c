package optset

import "fmt"

// Indicates that no mask is stored under the given key
type ErrNotFound[TKey any] struct {
	key TKey
}

func (m ErrNotFound[TKey]) Error() string {
	return fmt.Sprintf("not found: (%v)", m.key)
}

func NewErrNotFound[TKey any](key TKey) ErrNotFound[TKey] {
	return ErrNotFound[TKey]{
		key: key,
	}
}
