package session

import (
	"time"

	"lanenet/pkg/lane"
	"lanenet/pkg/metrics"
	"lanenet/pkg/wire"
)

type laneCursor struct {
	laneIdx wire.LaneIndex
	frags   []lane.FragmentRef
	pos     int
}

// Flush walks every lane's eligible fragments in fair round-robin order,
// packs them into MTU-bounded packets within the bandwidth budget, and
// returns the encoded packets ready for the transport to send. It may
// return zero, one, or many packets.
func (s *Session) Flush(now time.Time) ([][]byte, error) {
	if s.fatal != nil {
		return nil, s.fatal
	}
	s.clock = now

	cursors := make([]*laneCursor, 0, len(s.sendLanes))
	for i, sl := range s.sendLanes {
		elig := sl.Eligible(now, wire.LaneIndex(i))
		if len(elig) > 0 {
			cursors = append(cursors, &laneCursor{laneIdx: wire.LaneIndex(i), frags: elig})
		}
	}

	var packets [][]byte
	var cur []byte
	var curFlushed []flushedFragment

	finalize := func() {
		if len(cur) == 0 {
			return
		}
		pseq := s.packetSeq.Next()
		full := make([]byte, 0, s.cfg.packetCap())
		header := packetHeaderFor(pseq, s.recvAcks)
		full = header.Encode(full)
		full = append(full, cur...)
		packets = append(packets, full)
		s.flushedPackets[pseq] = curFlushed
		metrics.PacketsSent.Inc()
		cur = nil
		curFlushed = nil
	}

	starved := false
	for !starved {
		progressed := false
		for _, c := range cursors {
			if c.pos >= len(c.frags) {
				continue
			}
			ref := c.frags[c.pos]
			size := ref.Fragment.EncodeLen()

			if wire.PacketHeaderLen+size > s.mtu {
				return packets, oversizedFragmentError(size, s.mtu)
			}
			if wire.PacketHeaderLen+len(cur)+size > s.mtu {
				finalize()
			}
			if !s.bucket.TryConsume(now, size) {
				starved = true
				break
			}

			cur = ref.Fragment.Encode(cur)
			curFlushed = append(curFlushed, flushedFragment{Lane: c.laneIdx, MsgSeq: ref.MsgSeq, FragIndex: ref.FragIndex})
			sl := s.sendLanes[c.laneIdx]
			sl.MarkSent(ref.MsgSeq, ref.FragIndex, now)
			if ref.Retransmit {
				metrics.FragmentsRetransmitted.Inc()
			}
			c.pos++
			progressed = true
		}
		if starved || !progressed {
			break
		}
	}
	finalize()
	s.refreshBufferMetrics()
	return packets, nil
}
