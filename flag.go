package optset

import "golang.org/x/exp/constraints"

// Flag is the constraint for option flag enumerations. A flag type is any
// defined unsigned integer type whose enumerators are distinct powers of two,
// each one marking a single bit of the set's storage.
type Flag interface {
	constraints.Unsigned
}
