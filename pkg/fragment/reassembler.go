package fragment

import (
	"errors"
	"fmt"
	"time"

	"lanenet/pkg/seq"
	"lanenet/pkg/wire"
)

// ErrInvalidFragIndex is returned when a fragment's index is out of range
// for the 128-fragment limit, or a non-last fragment's index exceeds the
// message's already-known fragment count. A last fragment that disagrees
// with the known count yields ErrInconsistentLastFragment instead.
var ErrInvalidFragIndex = errors.New("fragment: invalid fragment index")

// ErrInconsistentLastFragment is returned when a second "last fragment"
// for a message arrives at a different index than the first one seen.
var ErrInconsistentLastFragment = errors.New("fragment: inconsistent last fragment")

// ErrInvalidFragSize is returned when a non-last fragment does not carry
// exactly MaxPayloadLen bytes, or a last fragment carries more.
var ErrInvalidFragSize = errors.New("fragment: invalid fragment size")

const bitsetWords = (wire.MaxFragmentIndex + 1 + 63) / 64

type partialMessage struct {
	numFrags  int // -1 until the last fragment has been seen
	totalLen  int // -1 until numFrags is known
	received  [bitsetWords]uint64
	payload   []byte
	firstSeen time.Time
}

func (p *partialMessage) bitSet(i int) bool {
	return p.received[i/64]&(1<<uint(i%64)) != 0
}

func (p *partialMessage) setBit(i int) {
	p.received[i/64] |= 1 << uint(i%64)
}

func (p *partialMessage) allReceived(numFrags int) bool {
	for i := 0; i < numFrags; i++ {
		if !p.bitSet(i) {
			return false
		}
	}
	return true
}

func (p *partialMessage) ensureCap(n int) {
	if len(p.payload) < n {
		grown := make([]byte, n)
		copy(grown, p.payload)
		p.payload = grown
	}
}

// Reassembler joins fragments carrying the same MessageSeq back into the
// original payload, per-message, until complete, evicted by timeout, or
// evicted by the receive-side memory governor.
type Reassembler struct {
	maxPayloadLen  int
	maxBufferBytes int // 0 means unbounded
	messages       map[seq.Num]*partialMessage
}

// NewReassembler returns an empty Reassembler. maxPayloadLen must match
// the Fragmenter's MaxPayloadLen used by the peer. maxBufferBytes bounds
// the total bytes held across all in-progress reassembly buffers; once a
// newly stored fragment would push the total over that cap, the oldest
// (lowest first_seen) reassembly entries are evicted until the total fits,
// per invariant 6. The entry just touched is spared unless it is the only
// one left and still over the cap. Zero means unbounded.
func NewReassembler(maxPayloadLen, maxBufferBytes int) *Reassembler {
	return &Reassembler{
		maxPayloadLen:  maxPayloadLen,
		maxBufferBytes: maxBufferBytes,
		messages:       make(map[seq.Num]*partialMessage),
	}
}

// Reassemble feeds one fragment into the reassembler. If the fragment
// completes its message, the assembled payload is returned with complete
// set to true and the message's buffer is removed. Duplicate fragments
// are silently dropped (ok but not complete, no error). evictedBytes
// reports how many bytes the memory governor discarded from in-progress
// messages (oldest first) to keep total reassembly buffer usage within
// the configured cap; callers should fold it into their own eviction
// metric.
func (r *Reassembler) Reassemble(now time.Time, frag wire.Fragment) (payload []byte, complete bool, evictedBytes int, err error) {
	index := int(frag.Header.Marker.Index())
	if index > wire.MaxFragmentIndex {
		return nil, false, 0, fmt.Errorf("%w: index %d exceeds max %d", ErrInvalidFragIndex, index, wire.MaxFragmentIndex)
	}

	msgSeq := frag.Header.MsgSeq
	pm, ok := r.messages[msgSeq]
	if !ok {
		pm = &partialMessage{numFrags: -1, totalLen: -1, firstSeen: now}
		r.messages[msgSeq] = pm
	}

	if !frag.Header.Marker.IsLast() && pm.numFrags >= 0 && index >= pm.numFrags {
		return nil, false, 0, fmt.Errorf("%w: index %d >= known fragment count %d", ErrInvalidFragIndex, index, pm.numFrags)
	}

	if frag.Header.Marker.IsLast() {
		if pm.numFrags >= 0 && pm.numFrags != index+1 {
			return nil, false, 0, fmt.Errorf("%w: message %d saw last fragment at index %d, now at %d",
				ErrInconsistentLastFragment, msgSeq, pm.numFrags-1, index)
		}
		pm.numFrags = index + 1
		pm.totalLen = index*r.maxPayloadLen + len(frag.Payload)
	}

	if frag.Header.Marker.IsLast() {
		if len(frag.Payload) > r.maxPayloadLen {
			return nil, false, 0, fmt.Errorf("%w: last fragment carries %d bytes, max is %d",
				ErrInvalidFragSize, len(frag.Payload), r.maxPayloadLen)
		}
	} else if len(frag.Payload) != r.maxPayloadLen {
		return nil, false, 0, fmt.Errorf("%w: non-last fragment carries %d bytes, want exactly %d",
			ErrInvalidFragSize, len(frag.Payload), r.maxPayloadLen)
	}

	if pm.bitSet(index) {
		// Duplicate fragment: already recorded, nothing to do.
		return nil, false, 0, nil
	}

	offset := index * r.maxPayloadLen
	pm.ensureCap(offset + len(frag.Payload))
	copy(pm.payload[offset:], frag.Payload)
	pm.setBit(index)

	if pm.numFrags >= 0 && pm.allReceived(pm.numFrags) {
		delete(r.messages, msgSeq)
		out := pm.payload[:pm.totalLen]
		return out, true, 0, nil
	}

	evicted := r.enforceCap(msgSeq)
	return nil, false, evicted, nil
}

// enforceCap evicts the oldest in-progress reassembly buffers, preferring
// to spare except (the message just touched), until total buffered bytes
// are back within maxBufferBytes. Returns the number of bytes evicted.
func (r *Reassembler) enforceCap(except seq.Num) int {
	if r.maxBufferBytes <= 0 {
		return 0
	}
	evicted := 0
	for r.BufferedBytes() > r.maxBufferBytes {
		victim, ok := r.oldest(except)
		if !ok {
			break
		}
		evicted += len(r.messages[victim].payload)
		delete(r.messages, victim)
	}
	return evicted
}

// oldest returns the MessageSeq with the earliest first_seen, skipping
// except unless it is the only entry left.
func (r *Reassembler) oldest(except seq.Num) (seq.Num, bool) {
	var victim seq.Num
	var oldestTime time.Time
	found := false
	for msgSeq, pm := range r.messages {
		if msgSeq == except && len(r.messages) > 1 {
			continue
		}
		if !found || pm.firstSeen.Before(oldestTime) {
			victim, oldestTime, found = msgSeq, pm.firstSeen, true
		}
	}
	return victim, found
}

// CleanUp evicts any in-progress reassembly buffer whose first fragment
// arrived more than timeout ago, returning how many were evicted.
func (r *Reassembler) CleanUp(now time.Time, timeout time.Duration) int {
	evicted := 0
	for msgSeq, pm := range r.messages {
		if now.Sub(pm.firstSeen) > timeout {
			delete(r.messages, msgSeq)
			evicted++
		}
	}
	return evicted
}

// Pending returns the number of messages currently mid-reassembly.
func (r *Reassembler) Pending() int {
	return len(r.messages)
}

// BufferedBytes returns the total bytes currently held across all
// in-progress reassembly buffers, for the memory governor.
func (r *Reassembler) BufferedBytes() int {
	total := 0
	for _, pm := range r.messages {
		total += len(pm.payload)
	}
	return total
}
