// Package session is the facade over the engine: sequence arithmetic, ack
// bookkeeping, fragmentation, the four lane kinds, the bandwidth-limited
// packet builder and reader, and the memory governor that bounds them
// all. It turns a stream of application (payload, lane) sends plus a
// stream of inbound raw packets into a stream of outbound raw packets
// plus delivered messages and delivery acknowledgements.
package session

import (
	"fmt"
	"time"

	"lanenet/pkg/ack"
	"lanenet/pkg/bandwidth"
	"lanenet/pkg/fragment"
	"lanenet/pkg/lane"
	"lanenet/pkg/logger"
	"lanenet/pkg/metrics"
	"lanenet/pkg/seq"
	"lanenet/pkg/wire"
)

// MessageKey identifies one sent message for application-level ack
// correlation.
type MessageKey struct {
	Lane wire.LaneIndex
	Seq  seq.Num
}

// AckEvent reports that every fragment of a previously sent reliable
// message has now been acknowledged by the peer.
type AckEvent struct {
	Lane wire.LaneIndex
	Seq  seq.Num
}

// ReceivedMessage is one application message delivered by Recv, already
// released in whatever order its lane's kind requires.
type ReceivedMessage struct {
	Lane    wire.LaneIndex
	Seq     seq.Num
	Payload []byte
}

// flushedFragment names one fragment carried by a packet the builder
// emitted, so a later peer ack of that packet can be translated back into
// a (lane, msg_seq, frag_index) ack.
type flushedFragment struct {
	Lane      wire.LaneIndex
	MsgSeq    seq.Num
	FragIndex int
}

// Session is the per-connection protocol engine. It is single-threaded:
// Send, Recv, Flush, Update and SetMTU must all be called from the same
// owner, which also owns the transport boundary.
type Session struct {
	cfg Config
	mtu int

	packetSeq seq.Counter
	msgSeq    seq.Counter
	recvAcks  ack.Set

	sendLanes []*lane.SendState
	recvLanes []*lane.RecvState

	fragmenter  fragment.Fragmenter
	reassembler *fragment.Reassembler

	bucket *bandwidth.Bucket

	flushedPackets map[seq.Num][]flushedFragment

	clock time.Time
	fatal error
}

// New constructs a Session from cfg. LanesIn and LanesOut must be the
// same length; index i in each names the same logical lane.
func New(cfg Config) (*Session, error) {
	if len(cfg.LanesIn) != len(cfg.LanesOut) {
		return nil, fmt.Errorf("session: lanes_in has %d entries, lanes_out has %d", len(cfg.LanesIn), len(cfg.LanesOut))
	}
	maxPayload := cfg.maxPayloadLen()
	if maxPayload < 1 {
		return nil, fmt.Errorf("%w: mtu %d leaves no room for any payload", ErrMtuTooSmall, cfg.MaxPacketLen)
	}

	s := &Session{
		cfg:            cfg,
		mtu:            cfg.MaxPacketLen,
		sendLanes:      make([]*lane.SendState, len(cfg.LanesOut)),
		recvLanes:      make([]*lane.RecvState, len(cfg.LanesIn)),
		fragmenter:     fragment.NewFragmenter(maxPayload),
		reassembler:    fragment.NewReassembler(maxPayload, cfg.RecvBufferBytesCap),
		bucket:         bandwidth.New(cfg.Bandwidth, cfg.burst()),
		flushedPackets: make(map[seq.Num][]flushedFragment),
	}
	for i, sc := range cfg.LanesOut {
		s.sendLanes[i] = lane.NewSendState(sc)
	}
	for i, k := range cfg.LanesIn {
		s.recvLanes[i] = lane.NewRecvState(k)
	}
	return s, nil
}

// Send enqueues message for transmission on lane. It does not itself
// transmit; Flush does.
func (s *Session) Send(payload []byte, laneIdx wire.LaneIndex) (MessageKey, error) {
	if s.fatal != nil {
		return MessageKey{}, s.fatal
	}
	if int(laneIdx) < 0 || int(laneIdx) >= len(s.sendLanes) {
		return MessageKey{}, fmt.Errorf("%w: %d", ErrInvalidLane, laneIdx)
	}

	msgSeq := s.msgSeq.Next()
	frags, err := s.fragmenter.Fragment(msgSeq, payload)
	if err != nil {
		return MessageKey{}, fmt.Errorf("%w: %v", ErrTooManyFragments, err)
	}

	sl := s.sendLanes[laneIdx]
	if err := s.admitSendBuffer(sl, len(payload)); err != nil {
		return MessageKey{}, err
	}

	sl.Buffer(msgSeq, frags)
	s.refreshBufferMetrics()
	return MessageKey{Lane: laneIdx, Seq: msgSeq}, nil
}

// refreshBufferMetrics recomputes the send/reassembly buffer gauges from
// current state. Called after any operation that changes buffer
// occupancy.
func (s *Session) refreshBufferMetrics() {
	total := 0
	for _, l := range s.sendLanes {
		total += l.BufferedBytes()
	}
	metrics.SendBufferBytes.Set(float64(total))
	metrics.ReassemblyBufferBytes.Set(float64(s.reassembler.BufferedBytes()))
}

// admitSendBuffer enforces the memory governor on the send side before a
// new message is buffered: reliable-lane overflow latches a fatal error.
// On unreliable-lane overflow the new message is rejected with
// ErrOutOfMemoryUnreliable and its size is added to the
// SendBufferBytesEvicted metric; messages already buffered are not
// evicted, and the session stays usable.
func (s *Session) admitSendBuffer(sl *lane.SendState, newBytes int) error {
	if s.cfg.SendBufferBytesCap <= 0 {
		return nil
	}
	total := newBytes
	for _, l := range s.sendLanes {
		total += l.BufferedBytes()
	}
	if total <= s.cfg.SendBufferBytesCap {
		return nil
	}
	if sl.Kind.Reliable() {
		s.fatal = ErrOutOfMemoryReliable
		return s.fatal
	}
	metrics.SendBufferBytesEvicted.Add(float64(newBytes))
	return ErrOutOfMemoryUnreliable
}

// SetMTU changes the target packet size, recomputing the fragmenter's
// per-fragment payload budget. Shrinking the MTU below what any payload
// budget needs is rejected and latches SessionFatal.
func (s *Session) SetMTU(newMTU int) error {
	if s.fatal != nil {
		return s.fatal
	}
	cfg := s.cfg
	cfg.MaxPacketLen = newMTU
	maxPayload := cfg.maxPayloadLen()
	if maxPayload < 1 {
		s.fatal = fmt.Errorf("%w: mtu %d", ErrMtuTooSmall, newMTU)
		return s.fatal
	}
	s.mtu = newMTU
	s.cfg.MaxPacketLen = newMTU
	s.fragmenter = fragment.NewFragmenter(maxPayload)
	return nil
}

// Update runs periodic maintenance: reassembly-buffer timeout eviction
// and FlushedPacket pruning. delta is the elapsed time since the last
// Update/Recv/Flush call that advanced the session's clock.
func (s *Session) Update(delta time.Duration) error {
	if s.fatal != nil {
		return s.fatal
	}
	s.clock = s.clock.Add(delta)
	before := s.reassembler.BufferedBytes()
	evicted := s.reassembler.CleanUp(s.clock, s.cfg.ReassemblyTimeout)
	if evicted > 0 {
		metrics.ReassemblyBytesEvicted.Add(float64(before - s.reassembler.BufferedBytes()))
		logger.Debug("reassembly timeout evicted %d message(s)", evicted)
	}
	s.pruneFlushedPackets()
	s.refreshBufferMetrics()
	return nil
}

// Stats is the per-lane statistics surface: point-in-time counts useful
// for diagnostics and the memory governor, without exposing internal
// buffer representations.
type Stats struct {
	SendBufferedMessages []int
	SendBufferedBytes    []int
	ReassemblyPending    int
	ReassemblyBytes      int
	FlushedPackets       int
}

// Stats snapshots the session's current bookkeeping.
func (s *Session) Stats() Stats {
	st := Stats{
		SendBufferedMessages: make([]int, len(s.sendLanes)),
		SendBufferedBytes:    make([]int, len(s.sendLanes)),
		ReassemblyPending:    s.reassembler.Pending(),
		ReassemblyBytes:      s.reassembler.BufferedBytes(),
		FlushedPackets:       len(s.flushedPackets),
	}
	for i, l := range s.sendLanes {
		st.SendBufferedMessages[i] = l.Pending()
		st.SendBufferedBytes[i] = l.BufferedBytes()
	}
	return st
}

func (s *Session) pruneFlushedPackets() {
	if len(s.flushedPackets) == 0 {
		return
	}
	lastSent := seq.Add(s.packetSeq.Peek(), -1)
	for pseq := range s.flushedPackets {
		if seq.Dist(pseq, lastSent) > 32 {
			delete(s.flushedPackets, pseq)
		}
	}
}
