package state

import "events-assistant/internal/domain"

// Transcript is the append-only, ordered chat log.
type Transcript struct {
	cell *Cell[[]domain.Entry]
}

func NewTranscript() *Transcript {
	return &Transcript{cell: NewCell([]domain.Entry{}, cloneEntries)}
}

// Append adds entry to the end of the log and notifies observers with the
// full updated sequence before returning.
func (t *Transcript) Append(entry domain.Entry) {
	entry = entry.Clone()
	t.cell.Update(func(entries []domain.Entry) []domain.Entry {
		return append(entries, entry)
	})
}

// Current returns the ordered entries. It is never nil.
func (t *Transcript) Current() []domain.Entry {
	return t.cell.Current()
}

func (t *Transcript) Subscribe(fn Observer[[]domain.Entry]) func() {
	return t.cell.Subscribe(fn)
}

func cloneEntries(in []domain.Entry) []domain.Entry {
	out := make([]domain.Entry, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}
