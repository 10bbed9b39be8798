package session

import (
	"errors"
	"fmt"
	"time"

	"lanenet/pkg/ack"
	"lanenet/pkg/fragment"
	"lanenet/pkg/metrics"
	"lanenet/pkg/wire"
)

// Recv consumes one inbound packet: it records the packet's sequence in
// the receive-side ack set, translates the peer's echoed acks into
// message-ack events, walks the fragment list driving reassembly, and
// hands completed messages to their lane's receive policy.
//
// A non-nil error means the packet was malformed and has been discarded;
// any acks and messages already produced before the malformed fragment
// was reached are still returned. The session itself remains fully
// usable after a non-fatal Recv error.
func (s *Session) Recv(now time.Time, packet []byte) ([]AckEvent, []ReceivedMessage, error) {
	if s.fatal != nil {
		return nil, nil, s.fatal
	}
	s.clock = now

	header, n, err := wire.DecodePacketHeader(packet)
	if err != nil {
		metrics.MalformedPacketsDropped.Inc()
		return nil, nil, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	s.recvAcks.Ack(header.Seq)

	events := s.translateAcks(header.Acks)

	var delivered []ReceivedMessage
	rest := packet[n:]
	for len(rest) > 0 {
		frag, consumed, err := wire.DecodeFragment(rest)
		if err != nil {
			metrics.MalformedPacketsDropped.Inc()
			if errors.Is(err, wire.ErrVarintTooLarge) {
				return events, delivered, fmt.Errorf("%w: %v", ErrBadVarint, err)
			}
			return events, delivered, fmt.Errorf("%w: %v", ErrShortRead, err)
		}
		rest = rest[consumed:]

		if int(frag.Lane) < 0 || int(frag.Lane) >= len(s.recvLanes) {
			metrics.MalformedPacketsDropped.Inc()
			return events, delivered, fmt.Errorf("%w: %d", ErrInvalidLaneIndex, frag.Lane)
		}

		payload, complete, evictedBytes, err := s.reassembler.Reassemble(now, frag)
		if evictedBytes > 0 {
			metrics.ReassemblyBytesEvicted.Add(float64(evictedBytes))
		}
		if err != nil {
			metrics.MalformedPacketsDropped.Inc()
			return events, delivered, classifyReassemblyError(err)
		}
		if !complete {
			continue
		}
		metrics.MessagesReassembled.Inc()

		recvLane := s.recvLanes[frag.Lane]
		for _, d := range recvLane.Receive(frag.Header.MsgSeq, payload) {
			delivered = append(delivered, ReceivedMessage{Lane: frag.Lane, Seq: d.Seq, Payload: d.Payload})
		}
	}

	s.pruneFlushedPackets()
	s.refreshBufferMetrics()
	return events, delivered, nil
}

// translateAcks walks every packet sequence the peer claims to have
// received, looks each up in FlushedPacket, and acks the fragments it
// named on their owning lane's send state.
func (s *Session) translateAcks(peerAcks ack.Set) []AckEvent {
	var events []AckEvent
	for _, pseq := range peerAcks.Seqs() {
		frags, ok := s.flushedPackets[pseq]
		if !ok {
			continue
		}
		for _, ff := range frags {
			sl := s.sendLanes[ff.Lane]
			if sl.Ack(ff.MsgSeq, ff.FragIndex) {
				events = append(events, AckEvent{Lane: ff.Lane, Seq: ff.MsgSeq})
			}
		}
	}
	return events
}

func classifyReassemblyError(err error) error {
	switch {
	case errors.Is(err, fragment.ErrInvalidFragIndex):
		return fmt.Errorf("%w: %v", ErrInvalidFragIndex, err)
	case errors.Is(err, fragment.ErrInconsistentLastFragment):
		return fmt.Errorf("%w: %v", ErrInconsistentLastFragment, err)
	case errors.Is(err, fragment.ErrInvalidFragSize):
		return fmt.Errorf("%w: %v", ErrInvalidFragSize, err)
	default:
		return err
	}
}
