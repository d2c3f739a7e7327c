package optset_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/flowscan/optset"
	"github.com/stretchr/testify/assert"
)

// test enumeration mirroring a unix-style permission mask
type Permission uint8

const (
	PermRead Permission = 1 << iota
	PermWrite
	PermExecute
)

// a wider enumeration to exercise 64-bit storage
type JobFlag uint64

const (
	JobRetry JobFlag = 1 << iota
	JobUrgent
	JobPinned
)

func randPermSet(rng *rand.Rand) optset.Set[Permission] {
	return optset.FromRaw(Permission(rng.Intn(256)))
}

func TestUnionContainsOperands(t *testing.T) {
	all := []Permission{PermRead, PermWrite, PermExecute}
	for _, a := range all {
		for _, b := range all {
			u := optset.Of(a).Union(optset.Of(b))
			assert.True(t, u.Contains(optset.Of(a)))
			assert.True(t, u.Contains(optset.Of(b)))
		}
	}
}

func TestUnionAlgebra(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 1000; i++ {
		x := randPermSet(rng)
		y := randPermSet(rng)
		z := randPermSet(rng)
		assert.Equal(t, x.Union(y), y.Union(x))
		assert.Equal(t, x.Union(y).Union(z), x.Union(y.Union(z)))
		assert.Equal(t, x, optset.Empty[Permission]().Union(x))
	}
}

func TestIntersectAlgebra(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 1000; i++ {
		x := randPermSet(rng)
		y := randPermSet(rng)
		z := randPermSet(rng)
		assert.Equal(t, x.Intersect(y), y.Intersect(x))
		assert.Equal(t, x.Intersect(y).Intersect(z), x.Intersect(y.Intersect(z)))
		assert.Equal(t, optset.Empty[Permission](), optset.Empty[Permission]().Intersect(x))
	}
}

func TestSelfDifferenceIsEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 1000; i++ {
		x := randPermSet(rng)
		assert.True(t, x.Difference(x).IsEmpty())
	}
}

func TestComplementFillsStorageWidth(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 1000; i++ {
		x := randPermSet(rng)
		assert.Equal(t, optset.FromRaw(^Permission(0)), x.Union(x.Complement()))
	}

	// phantom high bits beyond the defined enumerators are set too
	assert.Equal(t, Permission(255), optset.Empty[Permission]().Complement().Raw())
	assert.Equal(t, JobFlag(math.MaxUint64), optset.Empty[JobFlag]().Complement().Raw())
}

func TestContains(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 1000; i++ {
		x := randPermSet(rng)
		y := randPermSet(rng)
		assert.True(t, x.Contains(x))
		assert.Equal(t, x.Raw()&y.Raw() == y.Raw(), x.Contains(y))
	}

	// containment is a sub-bitmask test, not bit overlap
	rw := optset.Of(PermRead, PermWrite)
	assert.False(t, rw.Contains(optset.Of(PermWrite, PermExecute)))
	assert.True(t, rw.Contains(optset.Of(PermWrite)))
}

func TestRawRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 1000; i++ {
		x := randPermSet(rng)
		assert.Equal(t, x.Raw(), optset.FromRaw(x.Raw()).Raw())
	}
}

func TestPermissionScenario(t *testing.T) {
	rw := optset.Of(PermRead).Union(optset.Of(PermWrite))
	assert.Equal(t, Permission(3), rw.Raw())
	assert.True(t, rw.Contains(optset.Of(PermRead)))
	assert.False(t, rw.Contains(optset.Of(PermExecute)))

	r := rw.Difference(optset.Of(PermWrite))
	assert.Equal(t, Permission(1), r.Raw())
	assert.Equal(t, optset.Of(PermRead), r)
}

func TestEmpty(t *testing.T) {
	assert.True(t, optset.Empty[Permission]().IsEmpty())
	assert.False(t, optset.Of(PermRead).IsEmpty())

	// the zero value is the empty set
	var zero optset.Set[Permission]
	assert.True(t, zero.IsEmpty())
	assert.Equal(t, optset.Empty[Permission](), zero)
	assert.True(t, optset.Of[Permission]().IsEmpty())
}

func TestAssignForms(t *testing.T) {
	s := optset.Of(PermRead)

	s.UnionWith(optset.Of(PermWrite))
	assert.Equal(t, Permission(3), s.Raw())

	s.IntersectWith(optset.Of(PermWrite, PermExecute))
	assert.Equal(t, Permission(2), s.Raw())

	s.Subtract(optset.Of(PermWrite))
	assert.True(t, s.IsEmpty())

	s.Add(PermRead, PermExecute)
	assert.Equal(t, Permission(5), s.Raw())

	s.Remove(PermExecute)
	assert.Equal(t, optset.Of(PermRead), s)
}

func TestFlagPredicates(t *testing.T) {
	rw := optset.Of(PermRead, PermWrite)
	assert.True(t, rw.Has(PermRead))
	assert.True(t, rw.Has(PermRead, PermWrite))
	assert.False(t, rw.Has(PermRead, PermExecute))
	assert.True(t, rw.HasAny(PermRead, PermExecute))
	assert.False(t, rw.HasAny(PermExecute))
}

func TestCountAndString(t *testing.T) {
	rw := optset.Of(PermRead, PermWrite)
	assert.Equal(t, 2, rw.Count())
	assert.Equal(t, 0, optset.Empty[JobFlag]().Count())
	assert.Equal(t, 1, optset.Of(JobPinned).Count())

	assert.Equal(t, "0b00000011", rw.String())
	assert.Equal(t, "0b00000000", optset.Empty[Permission]().String())
}
