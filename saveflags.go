package optset

// SaveFlag adjusts how a single save is executed, folded with Set like LoadFlag.
type SaveFlag uint8

const (
	SaveSequential SaveFlag = 1 << iota // Run the save operation layer by layer instead of in parallel
	SaveAscending                       // With SaveSequential, save from the first layer to the last instead of last to first
)

// fold the default flags and the call-site flags into one set
func foldSaveFlags(def SaveFlag, flags []SaveFlag) Set[SaveFlag] {
	s := FromRaw(def)
	s.Add(flags...)
	return s
}
