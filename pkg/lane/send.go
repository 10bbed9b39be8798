package lane

import (
	"time"

	"lanenet/pkg/seq"
	"lanenet/pkg/wire"
)

// sentFragment is one fragment of a buffered outgoing message. Payload is
// cleared to nil once the fragment is acked; for reliable lanes the
// message itself is removed once every fragment slot is nil.
type sentFragment struct {
	payload    []byte
	lastSent   time.Time
	transmitted bool
}

// SentMessage is the send-buffer entry for one message: its fragments,
// each acked or not, and the running count of unacked fragments.
type SentMessage struct {
	Seq        seq.Num
	fragments  []sentFragment
	numUnacked int
}

// NumUnacked reports how many of the message's fragments are still
// unacknowledged.
func (m *SentMessage) NumUnacked() int { return m.numUnacked }

// FragmentRef names one eligible fragment awaiting transmission.
type FragmentRef struct {
	MsgSeq      seq.Num
	FragIndex   int
	Fragment    wire.Fragment
	Retransmit  bool // true if this fragment was already sent at least once
}

// SendState is the per-outgoing-lane buffer of unacknowledged message
// fragments, plus this lane's retransmission policy.
type SendState struct {
	Kind        Kind
	ResendAfter time.Duration

	messages map[seq.Num]*SentMessage
	order    []seq.Num // FIFO arrival order, for round-robin fairness within the lane
}

// NewSendState returns an empty send buffer for one lane.
func NewSendState(cfg SendConfig) *SendState {
	return &SendState{
		Kind:        cfg.Kind,
		ResendAfter: cfg.ResendAfter,
		messages:    make(map[seq.Num]*SentMessage),
	}
}

// Buffer enqueues a freshly fragmented message for transmission.
func (s *SendState) Buffer(msgSeq seq.Num, frags []wire.Fragment) {
	sm := &SentMessage{Seq: msgSeq, fragments: make([]sentFragment, len(frags)), numUnacked: len(frags)}
	for i, f := range frags {
		p := f.Payload
		if p == nil {
			// nil marks an acked slot; an empty fragment still has to go out.
			p = []byte{}
		}
		sm.fragments[i] = sentFragment{payload: p}
	}
	s.messages[msgSeq] = sm
	s.order = append(s.order, msgSeq)
}

// Eligible returns every fragment across this lane's send buffer that is
// allowed to go out now, in FIFO (msg_seq, frag_index) order: unreliable
// fragments never yet transmitted, and reliable fragments either never
// transmitted or whose resend_after has elapsed since last transmission.
func (s *SendState) Eligible(now time.Time, lane wire.LaneIndex) []FragmentRef {
	var out []FragmentRef
	for _, msgSeq := range s.order {
		sm, ok := s.messages[msgSeq]
		if !ok {
			continue // already fully acked/dropped and removed
		}
		for i := range sm.fragments {
			fr := &sm.fragments[i]
			if fr.payload == nil {
				continue // acked
			}
			if !s.Kind.Reliable() {
				if fr.transmitted {
					continue
				}
			} else if fr.transmitted && now.Sub(fr.lastSent) < s.ResendAfter {
				continue
			}
			out = append(out, FragmentRef{
				MsgSeq:     msgSeq,
				FragIndex:  i,
				Retransmit: fr.transmitted,
				Fragment: wire.Fragment{
					Lane:    lane,
					Header:  wire.FragmentHeader{MsgSeq: msgSeq, Marker: markerFor(i, len(sm.fragments))},
					Payload: fr.payload,
				},
			})
		}
	}
	return out
}

func markerFor(index, total int) wire.FragmentMarker {
	return wire.NewFragmentMarker(uint8(index), index == total-1)
}

// MarkSent records that a fragment was just transmitted. Unreliable
// messages are dropped from the buffer once every fragment has gone out
// at least once.
func (s *SendState) MarkSent(msgSeq seq.Num, fragIndex int, now time.Time) {
	sm, ok := s.messages[msgSeq]
	if !ok {
		return
	}
	sm.fragments[fragIndex].transmitted = true
	sm.fragments[fragIndex].lastSent = now

	if s.Kind.Reliable() {
		return
	}
	for _, fr := range sm.fragments {
		if !fr.transmitted {
			return
		}
	}
	s.remove(msgSeq)
}

// Ack marks one fragment of a reliable message as acknowledged. It
// reports whether the whole message is now fully acked (and therefore
// removed from the buffer).
func (s *SendState) Ack(msgSeq seq.Num, fragIndex int) (messageComplete bool) {
	sm, ok := s.messages[msgSeq]
	if !ok {
		return false
	}
	if fragIndex < 0 || fragIndex >= len(sm.fragments) {
		return false
	}
	if sm.fragments[fragIndex].payload == nil {
		return sm.numUnacked == 0
	}
	sm.fragments[fragIndex].payload = nil
	sm.numUnacked--
	if sm.numUnacked == 0 {
		s.remove(msgSeq)
		return true
	}
	return false
}

func (s *SendState) remove(msgSeq seq.Num) {
	delete(s.messages, msgSeq)
	for i, m := range s.order {
		if m == msgSeq {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Pending reports how many messages are currently buffered (sent or not).
func (s *SendState) Pending() int { return len(s.messages) }

// BufferedBytes sums the payload bytes still held for unacked fragments,
// for the memory governor.
func (s *SendState) BufferedBytes() int {
	total := 0
	for _, sm := range s.messages {
		for _, fr := range sm.fragments {
			total += len(fr.payload)
		}
	}
	return total
}
