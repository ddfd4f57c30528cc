package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"events-assistant/internal/domain"
)

func TestTranscript_StartsEmptyNotNil(t *testing.T) {
	tr := NewTranscript()
	require.NotNil(t, tr.Current())
	require.Empty(t, tr.Current())
}

func TestTranscript_AppendNotifiesBeforeReturning(t *testing.T) {
	tr := NewTranscript()
	var lengths []int
	tr.Subscribe(func(entries []domain.Entry) { lengths = append(lengths, len(entries)) })

	tr.Append(domain.Entry{ID: "1", Text: "hi"})
	require.Equal(t, []int{0, 1}, lengths)
	tr.Append(domain.Entry{ID: "2", Text: "there"})
	require.Equal(t, []int{0, 1, 2}, lengths)
}

func TestTranscript_AppendOnly(t *testing.T) {
	tr := NewTranscript()
	first := domain.Entry{ID: "1", Text: "one", Timestamp: time.Unix(1, 0), SelectionList: []string{"A"}}
	tr.Append(first)
	before := tr.Current()

	tr.Append(domain.Entry{ID: "2", Text: "two"})
	tr.Append(domain.Entry{ID: "3", Text: "three"})

	after := tr.Current()
	require.Len(t, after, 3)
	require.Equal(t, before[0], after[0])
	require.Equal(t, []string{"1", "2", "3"}, []string{after[0].ID, after[1].ID, after[2].ID})
}

func TestTranscript_SnapshotsDoNotAliasStore(t *testing.T) {
	tr := NewTranscript()
	list := []string{"A", "B"}
	tr.Append(domain.Entry{ID: "1", SelectionList: list})
	list[0] = "mutated"

	snap := tr.Current()
	require.Equal(t, []string{"A", "B"}, snap[0].SelectionList)

	snap[0].SelectionList[1] = "mutated"
	snap[0].Text = "mutated"
	require.Equal(t, []string{"A", "B"}, tr.Current()[0].SelectionList)
	require.Empty(t, tr.Current()[0].Text)
}
