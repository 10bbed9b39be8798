package fragment_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanenet/pkg/fragment"
	"lanenet/pkg/wire"
)

func TestFragmentEmptyPayload(t *testing.T) {
	f := fragment.NewFragmenter(8)
	frags, err := f.Fragment(0, nil)
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.True(t, frags[0].Header.Marker.IsLast())
	assert.EqualValues(t, 0, frags[0].Header.Marker.Index())
	assert.Empty(t, frags[0].Payload)
}

// TestFragmentedMessage reproduces spec.md §8 scenario 2 literally.
func TestFragmentedMessage(t *testing.T) {
	f := fragment.NewFragmenter(8)
	payload := []byte("ABCDEFGHIJKLMNO") // 15 bytes
	frags, err := f.Fragment(0, payload)
	require.NoError(t, err)
	require.Len(t, frags, 2)

	assert.EqualValues(t, 0, frags[0].Header.Marker.Index())
	assert.False(t, frags[0].Header.Marker.IsLast())
	assert.Len(t, frags[0].Payload, 8)

	assert.EqualValues(t, 1, frags[1].Header.Marker.Index())
	assert.True(t, frags[1].Header.Marker.IsLast())
	assert.Len(t, frags[1].Payload, 7)

	r := fragment.NewReassembler(8, 0)
	now := time.Now()
	_, complete, _, err := r.Reassemble(now, frags[1])
	require.NoError(t, err)
	assert.False(t, complete)

	out, complete, _, err := r.Reassemble(now, frags[0])
	require.NoError(t, err)
	require.True(t, complete)
	assert.Equal(t, payload, out)
}

func TestTooManyFragments(t *testing.T) {
	f := fragment.NewFragmenter(1)
	_, err := f.Fragment(0, make([]byte, 200))
	assert.ErrorIs(t, err, fragment.ErrTooManyFragments)
}

func TestDuplicateFragmentDropped(t *testing.T) {
	f := fragment.NewFragmenter(4)
	frags, err := f.Fragment(0, []byte("hello world"))
	require.NoError(t, err)

	r := fragment.NewReassembler(4, 0)
	now := time.Now()
	_, _, _, err = r.Reassemble(now, frags[0])
	require.NoError(t, err)
	_, complete, _, err := r.Reassemble(now, frags[0])
	require.NoError(t, err)
	assert.False(t, complete)
}

func TestInconsistentLastFragment(t *testing.T) {
	r := fragment.NewReassembler(4, 0)
	now := time.Now()
	last1 := wire.Fragment{
		Header:  wire.FragmentHeader{MsgSeq: 1, Marker: wire.NewFragmentMarker(2, true)},
		Payload: []byte("ab"),
	}
	_, _, _, err := r.Reassemble(now, last1)
	require.NoError(t, err)

	last2 := wire.Fragment{
		Header:  wire.FragmentHeader{MsgSeq: 1, Marker: wire.NewFragmentMarker(3, true)},
		Payload: []byte("cd"),
	}
	_, _, _, err = r.Reassemble(now, last2)
	assert.ErrorIs(t, err, fragment.ErrInconsistentLastFragment)
}

func TestInvalidFragSize(t *testing.T) {
	r := fragment.NewReassembler(4, 0)
	now := time.Now()
	bad := wire.Fragment{
		Header:  wire.FragmentHeader{MsgSeq: 1, Marker: wire.NewFragmentMarker(0, false)},
		Payload: []byte("ab"), // should be exactly 4 bytes
	}
	_, _, _, err := r.Reassemble(now, bad)
	assert.ErrorIs(t, err, fragment.ErrInvalidFragSize)
}

func TestCleanUpEvictsStale(t *testing.T) {
	r := fragment.NewReassembler(4, 0)
	now := time.Now()
	frag := wire.Fragment{
		Header:  wire.FragmentHeader{MsgSeq: 1, Marker: wire.NewFragmentMarker(0, false)},
		Payload: []byte("abcd"),
	}
	_, _, _, err := r.Reassemble(now, frag)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Pending())

	evicted := r.CleanUp(now.Add(4*time.Second), 3*time.Second)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 0, r.Pending())
}

// TestCleanUpEvictsStale exercises timeout eviction; this covers invariant
// 6's other enforcement path: a byte cap. Two messages each hold one
// 4-byte fragment; the cap only has room for one, so the second insertion
// evicts the first (older) one rather than growing past the cap.
func TestByteCapEvictsOldestReassemblyEntry(t *testing.T) {
	r := fragment.NewReassembler(4, 4)
	now := time.Now()

	first := wire.Fragment{
		Header:  wire.FragmentHeader{MsgSeq: 1, Marker: wire.NewFragmentMarker(0, false)},
		Payload: []byte("abcd"),
	}
	_, _, evicted, err := r.Reassemble(now, first)
	require.NoError(t, err)
	assert.Zero(t, evicted)
	assert.Equal(t, 1, r.Pending())
	assert.Equal(t, 4, r.BufferedBytes())

	second := wire.Fragment{
		Header:  wire.FragmentHeader{MsgSeq: 2, Marker: wire.NewFragmentMarker(0, false)},
		Payload: []byte("wxyz"),
	}
	_, _, evicted, err = r.Reassemble(now.Add(time.Second), second)
	require.NoError(t, err)
	assert.Equal(t, 4, evicted)
	assert.Equal(t, 1, r.Pending(), "the older message 1 was evicted, message 2 survives")
	assert.Equal(t, 4, r.BufferedBytes())

	// Completing message 2 proves it survived the eviction.
	last := wire.Fragment{
		Header:  wire.FragmentHeader{MsgSeq: 2, Marker: wire.NewFragmentMarker(1, true)},
		Payload: []byte("!!"),
	}
	out, complete, _, err := r.Reassemble(now.Add(time.Second), last)
	require.NoError(t, err)
	require.True(t, complete)
	assert.Equal(t, []byte("wxyz!!"), out)
}

// TestFragmentRoundTripProperty is a lightweight property test: any
// payload fed through the fragmenter, delivered to the reassembler in any
// order, reassembles to the original bytes exactly once.
func TestFragmentRoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		maxPayload := 1 + rng.Intn(32)
		payload := make([]byte, rng.Intn(300))
		rng.Read(payload)

		f := fragment.NewFragmenter(maxPayload)
		frags, err := f.Fragment(0, payload)
		if err != nil {
			continue // oversize for this maxPayload, not under test here
		}

		order := rng.Perm(len(frags))
		r := fragment.NewReassembler(maxPayload, 0)
		now := time.Now()
		completions := 0
		var result []byte
		for _, idx := range order {
			out, complete, _, err := r.Reassemble(now, frags[idx])
			require.NoError(t, err)
			if complete {
				completions++
				result = out
			}
		}
		assert.Equal(t, 1, completions)
		assert.Equal(t, payload, result)
	}
}
