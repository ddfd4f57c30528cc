package state

// LoadingFlags are the two independent busy indicators a UI renders.
type LoadingFlags struct {
	// Primary is true while an NLU request is in flight.
	Primary *Cell[bool]
	// Suggestions is true while a place lookup is in flight.
	Suggestions *Cell[bool]
}

func NewLoadingFlags(primary bool) *LoadingFlags {
	return &LoadingFlags{
		Primary:     NewCell(primary, nil),
		Suggestions: NewCell(false, nil),
	}
}

// Track sets flag to true, runs fn and sets the flag back to false whether
// fn returns normally or panics.
func Track(flag *Cell[bool], fn func()) {
	flag.Set(true)
	defer flag.Set(false)
	fn()
}
