// Package wire implements the byte-exact on-wire packet format: fixed
// big-endian packet headers, a varint-framed fragment list, and the
// 8-bit fragment marker that packs a fragment index and a last-fragment
// flag into one byte. See spec.md §6 "Wire format (byte-exact)".
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"lanenet/pkg/ack"
	"lanenet/pkg/seq"
)

// ErrInvalidLaneIndex names a decoded lane index that does not fit in the
// caller's configured lane set. No decoder in this package returns it:
// DecodeFragment accepts any lane index, and range checks are left to the
// caller.
var ErrInvalidLaneIndex = errors.New("wire: invalid lane index")

// MaxFragmentIndex is the largest index a FragmentMarker can carry: the
// low 7 bits limit a message to 128 fragments (spec.md §3, FragmentMarker).
const MaxFragmentIndex = 127

const lastFragBit = 0x80

// PacketHeaderLen is the fixed encoded size of a PacketHeader: 2 bytes
// packet_seq + 2 bytes ack last_recv + 4 bytes ack bits.
const PacketHeaderLen = 2 + 2 + 4

// FragmentHeaderLen is the fixed encoded size of a FragmentHeader: 2
// bytes msg_seq + 1 byte marker.
const FragmentHeaderLen = 2 + 1

// LaneIndex is a dense lane identifier, varint-encoded on the wire.
type LaneIndex uint32

// FragmentMarker packs a 7-bit fragment index and a 1-bit "is this the
// last fragment of the message" flag into a single byte.
type FragmentMarker uint8

// NewFragmentMarker builds a marker for index, which must be in
// [0, MaxFragmentIndex].
func NewFragmentMarker(index uint8, isLast bool) FragmentMarker {
	m := FragmentMarker(index & 0x7f)
	if isLast {
		m |= lastFragBit
	}
	return m
}

// Index returns the fragment's index within its message.
func (m FragmentMarker) Index() uint8 {
	return uint8(m) & 0x7f
}

// IsLast reports whether this is the final fragment of its message.
func (m FragmentMarker) IsLast() bool {
	return uint8(m)&lastFragBit != 0
}

// FragmentHeader identifies which message a fragment belongs to and its
// position within that message.
type FragmentHeader struct {
	MsgSeq seq.Num
	Marker FragmentMarker
}

// Encode appends the fixed 3-byte encoding of h to buf.
func (h FragmentHeader) Encode(buf []byte) []byte {
	buf = append(buf, byte(h.MsgSeq>>8), byte(h.MsgSeq))
	return append(buf, byte(h.Marker))
}

// DecodeFragmentHeader reads a FragmentHeader from the front of data.
func DecodeFragmentHeader(data []byte) (FragmentHeader, int, error) {
	if len(data) < FragmentHeaderLen {
		return FragmentHeader{}, 0, ErrShortRead
	}
	msgSeq := seq.Num(binary.BigEndian.Uint16(data))
	marker := FragmentMarker(data[2])
	return FragmentHeader{MsgSeq: msgSeq, Marker: marker}, FragmentHeaderLen, nil
}

// PacketHeader is the fixed-size header prefixing every packet: the
// packet's own sequence number and the sender's current ack window.
type PacketHeader struct {
	Seq  seq.Num
	Acks ack.Set
}

// Encode appends the fixed 8-byte encoding of h to buf.
func (h PacketHeader) Encode(buf []byte) []byte {
	var tmp [PacketHeaderLen]byte
	binary.BigEndian.PutUint16(tmp[0:2], uint16(h.Seq))
	binary.BigEndian.PutUint16(tmp[2:4], uint16(h.Acks.LastRecv))
	binary.BigEndian.PutUint32(tmp[4:8], h.Acks.Bits)
	return append(buf, tmp[:]...)
}

// DecodePacketHeader reads a PacketHeader from the front of data.
func DecodePacketHeader(data []byte) (PacketHeader, int, error) {
	if len(data) < PacketHeaderLen {
		return PacketHeader{}, 0, ErrShortRead
	}
	h := PacketHeader{
		Seq: seq.Num(binary.BigEndian.Uint16(data[0:2])),
		Acks: ack.Set{
			LastRecv: seq.Num(binary.BigEndian.Uint16(data[2:4])),
			Bits:     binary.BigEndian.Uint32(data[4:8]),
		},
	}
	return h, PacketHeaderLen, nil
}

// Fragment is a single (lane, fragment header, payload) triple as it
// appears inside a packet.
type Fragment struct {
	Lane    LaneIndex
	Header  FragmentHeader
	Payload []byte
}

// EncodeLen returns the number of bytes Encode will append for f.
func (f Fragment) EncodeLen() int {
	return VarintLen(uint64(f.Lane)) + FragmentHeaderLen + VarintLen(uint64(len(f.Payload))) + len(f.Payload)
}

// Encode appends f's wire encoding to buf: varint(lane) + FragmentHeader +
// varint(len(payload)) + payload.
func (f Fragment) Encode(buf []byte) []byte {
	buf = AppendVarint(buf, uint64(f.Lane))
	buf = f.Header.Encode(buf)
	buf = AppendVarint(buf, uint64(len(f.Payload)))
	return append(buf, f.Payload...)
}

// DecodeFragment reads one Fragment from the front of data, returning the
// fragment and the number of bytes consumed. The returned Payload aliases
// data; callers that retain it across further reads of the same buffer
// must copy it first.
func DecodeFragment(data []byte) (Fragment, int, error) {
	lane, n1, err := ReadVarint(data)
	if err != nil {
		return Fragment{}, 0, fmt.Errorf("lane index: %w", err)
	}
	rest := data[n1:]

	header, n2, err := DecodeFragmentHeader(rest)
	if err != nil {
		return Fragment{}, 0, fmt.Errorf("fragment header: %w", err)
	}
	rest = rest[n2:]

	payloadLen, n3, err := ReadVarint(rest)
	if err != nil {
		return Fragment{}, 0, fmt.Errorf("payload length: %w", err)
	}
	rest = rest[n3:]

	if uint64(len(rest)) < payloadLen {
		return Fragment{}, 0, ErrShortRead
	}

	frag := Fragment{
		Lane:    LaneIndex(lane),
		Header:  header,
		Payload: rest[:payloadLen],
	}
	consumed := n1 + n2 + n3 + int(payloadLen)
	return frag, consumed, nil
}
