package state

// Suggestions holds the quick replies offered after a bot turn. A new set
// always supersedes the previous one.
type Suggestions struct {
	cell *Cell[[]string]
}

func NewSuggestions() *Suggestions {
	return &Suggestions{cell: NewCell([]string{}, cloneStrings)}
}

// Replace sets the suggestion set to exactly list. A nil list clears it.
func (s *Suggestions) Replace(list []string) {
	list = cloneStrings(list)
	s.cell.Set(list)
}

// Clear is Replace with an empty set.
func (s *Suggestions) Clear() {
	s.Replace(nil)
}

func (s *Suggestions) Current() []string {
	return s.cell.Current()
}

func (s *Suggestions) Subscribe(fn Observer[[]string]) func() {
	return s.cell.Subscribe(fn)
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
