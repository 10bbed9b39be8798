package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanenet/pkg/ack"
	"lanenet/pkg/seq"
	"lanenet/pkg/wire"
)

func TestFragmentMarkerPacking(t *testing.T) {
	m := wire.NewFragmentMarker(5, false)
	assert.EqualValues(t, 5, m.Index())
	assert.False(t, m.IsLast())

	m = wire.NewFragmentMarker(5, true)
	assert.EqualValues(t, 5, m.Index())
	assert.True(t, m.IsLast())

	m = wire.NewFragmentMarker(wire.MaxFragmentIndex, true)
	assert.EqualValues(t, wire.MaxFragmentIndex, m.Index())
}

func TestPacketHeaderRoundTrip(t *testing.T) {
	in := wire.PacketHeader{
		Seq:  seq.Num(1234),
		Acks: ack.Set{LastRecv: 99, Bits: 0xdeadbeef},
	}
	buf := in.Encode(nil)
	require.Len(t, buf, wire.PacketHeaderLen)

	out, n, err := wire.DecodePacketHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, wire.PacketHeaderLen, n)
	assert.Equal(t, in, out)
}

func TestFragmentRoundTrip(t *testing.T) {
	f := wire.Fragment{
		Lane: 3,
		Header: wire.FragmentHeader{
			MsgSeq: 77,
			Marker: wire.NewFragmentMarker(2, true),
		},
		Payload: []byte("hello"),
	}
	buf := f.Encode(nil)
	assert.Len(t, buf, f.EncodeLen())

	out, n, err := wire.DecodeFragment(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, f.Lane, out.Lane)
	assert.Equal(t, f.Header, out.Header)
	assert.Equal(t, f.Payload, out.Payload)
}

func TestDecodeFragmentShortRead(t *testing.T) {
	_, _, err := wire.DecodeFragment([]byte{0x01})
	assert.Error(t, err)
}

func TestVarintRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, ^uint64(0)} {
		buf := wire.AppendVarint(nil, v)
		assert.Len(t, buf, wire.VarintLen(v))
		got, n, err := wire.ReadVarint(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

// TestSingleSmallMessageWireSize reproduces spec.md §8 scenario 1's byte
// count: header(8) + lane(1) + frag header(3) + len varint(1) + payload(5).
func TestSingleSmallMessageWireSize(t *testing.T) {
	f := wire.Fragment{
		Lane:    0,
		Header:  wire.FragmentHeader{MsgSeq: 0, Marker: wire.NewFragmentMarker(0, true)},
		Payload: []byte("hello"),
	}
	h := wire.PacketHeader{Seq: 0}
	buf := h.Encode(nil)
	buf = f.Encode(buf)
	assert.Len(t, buf, wire.PacketHeaderLen+1+wire.FragmentHeaderLen+1+5)
}
