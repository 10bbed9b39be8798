// Package fragment splits outgoing message payloads into wire-sized
// fragments and reassembles incoming fragments back into messages,
// grounded on aeronet_proto's FragmentSender/FragmentReceiver split in
// the original sources and on the teacher's SplitPackets handling in
// pkg/raknet (session split-packet accumulation by SplitID).
package fragment

import (
	"errors"
	"fmt"

	"lanenet/pkg/seq"
	"lanenet/pkg/wire"
)

// ErrTooManyFragments is returned by Fragmenter.Fragment when a payload
// would need more than wire.MaxFragmentIndex+1 fragments.
var ErrTooManyFragments = errors.New("fragment: too many fragments for message")

// Fragmenter splits a message payload into fragments bounded by
// MaxPayloadLen bytes each.
type Fragmenter struct {
	// MaxPayloadLen is the maximum number of payload bytes any one
	// fragment may carry.
	MaxPayloadLen int
}

// NewFragmenter returns a Fragmenter with the given per-fragment payload
// budget.
func NewFragmenter(maxPayloadLen int) Fragmenter {
	return Fragmenter{MaxPayloadLen: maxPayloadLen}
}

// Fragment splits payload into fragments for msgSeq. An empty payload
// yields a single zero-length last fragment.
func (f Fragmenter) Fragment(msgSeq seq.Num, payload []byte) ([]wire.Fragment, error) {
	p := f.MaxPayloadLen
	if p <= 0 {
		p = 1
	}

	n := 1
	if len(payload) > 0 {
		n = (len(payload) + p - 1) / p
	}
	if n > wire.MaxFragmentIndex+1 {
		return nil, fmt.Errorf("%w: payload of %d bytes needs %d fragments, max is %d",
			ErrTooManyFragments, len(payload), n, wire.MaxFragmentIndex+1)
	}

	frags := make([]wire.Fragment, 0, n)
	for i := 0; i < n; i++ {
		start := i * p
		end := start + p
		if end > len(payload) {
			end = len(payload)
		}
		isLast := i == n-1
		frags = append(frags, wire.Fragment{
			Header: wire.FragmentHeader{
				MsgSeq: msgSeq,
				Marker: wire.NewFragmentMarker(uint8(i), isLast),
			},
			Payload: payload[start:end],
		})
	}
	return frags, nil
}
