// Package optset provides a type-safe container for power-of-two flag
// enumerations, plus a layered store for persisting flag masks by key.
package optset

import (
	"math/bits"
	"strconv"
	"strings"
)

// Set records which flags of the enumeration TFlag are active, stored as the
// bits of a single unsigned value of the enumeration's own width. Sets over
// different enumerations are different types and cannot be mixed. The zero
// value is the empty set.
type Set[TFlag Flag] struct {
	mask TFlag
}

// Create an empty set. Equivalent to the zero value, for call sites that want
// the absence of flags to be explicit.
func Empty[TFlag Flag]() Set[TFlag] {
	return Set[TFlag]{}
}

// Create a set holding the given flags. With no arguments the set is empty,
// with several arguments the flags are combined by union.
func Of[TFlag Flag](flags ...TFlag) Set[TFlag] {
	var mask TFlag
	for _, f := range flags {
		mask |= f
	}
	return Set[TFlag]{mask: mask}
}

// Create a set from a raw bit pattern, taken verbatim. Bit k of the pattern
// marks the flag whose value is 1<<k. This is the only constructor that
// accepts an arbitrary multi-bit pattern, used when round-tripping a
// persisted mask or interfacing with APIs that deal in raw bits.
func FromRaw[TFlag Flag](mask TFlag) Set[TFlag] {
	return Set[TFlag]{mask: mask}
}

// The raw bit pattern backing this set, the sanctioned boundary for handing
// a set to raw-bitmask APIs or persistence
func (s Set[TFlag]) Raw() TFlag {
	return s.mask
}

// Check if no flags are set
func (s Set[TFlag]) IsEmpty() bool {
	return s.mask == 0
}

// Check if every flag in other is also set in s
func (s Set[TFlag]) Contains(other Set[TFlag]) bool {
	return s.mask&other.mask == other.mask
}

// Check if all of the given flags are set
func (s Set[TFlag]) Has(flags ...TFlag) bool {
	return s.Contains(Of(flags...))
}

// Check if at least one of the given flags is set
func (s Set[TFlag]) HasAny(flags ...TFlag) bool {
	return s.mask&Of(flags...).mask != 0
}

// Union of the two sets
func (s Set[TFlag]) Union(other Set[TFlag]) Set[TFlag] {
	return Set[TFlag]{mask: s.mask | other.mask}
}

// Intersection of the two sets
func (s Set[TFlag]) Intersect(other Set[TFlag]) Set[TFlag] {
	return Set[TFlag]{mask: s.mask & other.mask}
}

// Complement over the full width of the storage type. Bits beyond the defined
// enumerators are flipped too, so the result can carry set bits with no
// corresponding flag; intersect against a defined mask when that matters.
func (s Set[TFlag]) Complement() Set[TFlag] {
	return Set[TFlag]{mask: ^s.mask}
}

// Difference: the flags set in s that are not set in other. Not commutative.
func (s Set[TFlag]) Difference(other Set[TFlag]) Set[TFlag] {
	return Set[TFlag]{mask: s.mask &^ other.mask}
}

// In-place union with other
func (s *Set[TFlag]) UnionWith(other Set[TFlag]) {
	s.mask |= other.mask
}

// In-place intersection with other
func (s *Set[TFlag]) IntersectWith(other Set[TFlag]) {
	s.mask &= other.mask
}

// In-place difference: clears every flag that is set in other
func (s *Set[TFlag]) Subtract(other Set[TFlag]) {
	s.mask &^= other.mask
}

// Set the given flags
func (s *Set[TFlag]) Add(flags ...TFlag) {
	s.mask |= Of(flags...).mask
}

// Clear the given flags
func (s *Set[TFlag]) Remove(flags ...TFlag) {
	s.mask &^= Of(flags...).mask
}

// Number of flags set
func (s Set[TFlag]) Count() int {
	return bits.OnesCount64(uint64(s.mask))
}

// String formats the raw pattern as fixed-width binary for debugging. It is
// not a serialization format; use Raw for that.
func (s Set[TFlag]) String() string {
	width := bits.OnesCount64(uint64(^TFlag(0)))
	raw := strconv.FormatUint(uint64(s.mask), 2)
	if pad := width - len(raw); pad > 0 {
		raw = strings.Repeat("0", pad) + raw
	}
	return "0b" + raw
}
