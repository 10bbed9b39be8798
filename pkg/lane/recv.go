package lane

import (
	"lanenet/pkg/ack"
	"lanenet/pkg/seq"
)

// Delivered is one message ready to hand to the application, in the
// order the lane's kind requires it to be released.
type Delivered struct {
	Seq     seq.Num
	Payload []byte
}

// dedupWindow is the "sliding window of recently delivered MessageSeqs"
// the spec calls for on ReliableUnordered lanes. It reuses the ack set's
// (last_recv, bits) window, which is exactly that structure applied to
// message sequence numbers instead of packet sequence numbers.
type dedupWindow struct {
	seen ack.Set
	init bool
}

func (w *dedupWindow) seenBefore(s seq.Num) bool {
	if !w.init {
		return false
	}
	return w.seen.IsAcked(s)
}

func (w *dedupWindow) record(s seq.Num) {
	if !w.init {
		w.seen.LastRecv = s
		w.init = true
	}
	w.seen.Ack(s)
}

// RecvState is the per-incoming-lane policy deciding whether a freshly
// reassembled message is delivered immediately, dropped, or buffered
// pending in-order release.
type RecvState struct {
	Kind Kind

	hasLastDelivered bool
	lastDelivered    seq.Num

	dedup dedupWindow

	nextExpected seq.Num
	pending      map[seq.Num][]byte
}

// NewRecvState returns a fresh receive-side lane state.
func NewRecvState(kind Kind) *RecvState {
	r := &RecvState{Kind: kind}
	if kind == ReliableOrdered {
		r.pending = make(map[seq.Num][]byte)
	}
	return r
}

// Receive feeds one reassembled message into the lane's delivery policy,
// returning zero or more messages now ready for the application in
// release order. Ordered lanes may release several buffered messages in
// one call.
func (r *RecvState) Receive(msgSeq seq.Num, payload []byte) []Delivered {
	switch r.Kind {
	case UnreliableUnordered:
		return []Delivered{{Seq: msgSeq, Payload: payload}}

	case UnreliableSequenced:
		if r.hasLastDelivered && !seq.Newer(r.lastDelivered, msgSeq) {
			return nil
		}
		r.hasLastDelivered = true
		r.lastDelivered = msgSeq
		return []Delivered{{Seq: msgSeq, Payload: payload}}

	case ReliableUnordered:
		if r.dedup.seenBefore(msgSeq) {
			return nil
		}
		r.dedup.record(msgSeq)
		return []Delivered{{Seq: msgSeq, Payload: payload}}

	case ReliableOrdered:
		return r.receiveOrdered(msgSeq, payload)

	default:
		return nil
	}
}

// receiveOrdered implements the per-lane next_expected state machine.
// next_expected starts at zero (the value the session's shared MessageSeq
// counter itself starts from) and only ever advances on an in-order
// delivery; a lane never infers its baseline from whatever happens to
// arrive first, since a first arrival is not guaranteed to be genuinely
// first.
func (r *RecvState) receiveOrdered(msgSeq seq.Num, payload []byte) []Delivered {
	if msgSeq != r.nextExpected {
		if seq.Newer(r.nextExpected, msgSeq) {
			r.pending[msgSeq] = payload
		}
		// older than next_expected: already delivered, drop.
		return nil
	}

	out := []Delivered{{Seq: msgSeq, Payload: payload}}
	r.nextExpected = seq.Add(r.nextExpected, 1)
	for {
		next, ok := r.pending[r.nextExpected]
		if !ok {
			break
		}
		delete(r.pending, r.nextExpected)
		out = append(out, Delivered{Seq: r.nextExpected, Payload: next})
		r.nextExpected = seq.Add(r.nextExpected, 1)
	}
	return out
}

// PendingBuffered reports how many out-of-order messages an ordered lane
// is currently holding, for the memory governor and diagnostics.
func (r *RecvState) PendingBuffered() int {
	return len(r.pending)
}
