package optset

// LoadFlag adjusts how a single load is executed. The enumeration is itself a
// power-of-two flag set folded with Set, the same machinery this library provides.
type LoadFlag uint8

const (
	LoadFresh   LoadFlag = 1 << iota // Skip cache layers and resolve from the last (authoritative) layer
	LoadNoBatch                      // Don't use the batcher when loading
	LoadNoShare                      // Don't join an in-flight batch, start a new one
)

// fold the default flags and the call-site flags into one set
func foldLoadFlags(def LoadFlag, flags []LoadFlag) Set[LoadFlag] {
	s := FromRaw(def)
	s.Add(flags...)
	return s
}
