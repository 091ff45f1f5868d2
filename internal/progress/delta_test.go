package progress

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestComputeDeltaKnownUnknownSwap(t *testing.T) {
	// Prior state: known = {A, B}, unknown = {C}.
	// Session: A -> unknown, C -> known.
	delta := ComputeDelta(
		[]string{"A", "B"},
		[]string{"C"},
		Classification{"A": Unknown, "C": Known},
	)

	want := Delta{
		KnownAdd:      []string{"C"},
		KnownRemove:   []string{"A"},
		UnknownAdd:    []string{"A"},
		UnknownRemove: []string{"C"},
	}
	if diff := cmp.Diff(want, delta); diff != "" {
		t.Errorf("delta mismatch (-want +got):\n%s", diff)
	}

	known, unknown := ApplyDelta([]string{"A", "B"}, []string{"C"}, delta)
	assert.Equal(t, []string{"B", "C"}, known)
	assert.Equal(t, []string{"A"}, unknown)
}

func TestComputeDeltaOnlyTouchesSessionCards(t *testing.T) {
	delta := ComputeDelta(
		[]string{"A", "B", "X"},
		[]string{"Y"},
		Classification{"A": Known}, // A already known: no change at all
	)
	assert.True(t, delta.Empty(), "re-confirming existing state must produce an empty delta")
}

func TestComputeDeltaNewCards(t *testing.T) {
	delta := ComputeDelta(nil, nil, Classification{"A": Known, "B": Unknown})

	assert.Equal(t, []string{"A"}, delta.KnownAdd)
	assert.Equal(t, []string{"B"}, delta.UnknownAdd)
	assert.Empty(t, delta.KnownRemove)
	assert.Empty(t, delta.UnknownRemove)
}

func TestComputeDeltaEmptyClassification(t *testing.T) {
	delta := ComputeDelta([]string{"A"}, []string{"B"}, Classification{})
	assert.True(t, delta.Empty())
}

func TestComputeDeltaDeterministicOrder(t *testing.T) {
	c := Classification{"d": Known, "a": Known, "c": Known, "b": Known}
	delta := ComputeDelta(nil, nil, c)
	assert.Equal(t, []string{"a", "b", "c", "d"}, delta.KnownAdd, "delta output must be sorted")
}
