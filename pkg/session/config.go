package session

import (
	"time"

	"lanenet/pkg/lane"
	"lanenet/pkg/wire"
)

// fragmentOverhead is the per-fragment wire overhead the session budgets
// for beyond the raw payload: a 1-byte lane-index varint (sessions with
// fewer than 128 lanes, the common case), the fixed 3-byte fragment
// header, and a 2-byte payload-length varint (payloads up to 16383 bytes
// per fragment, comfortably above any sane MTU-derived fragment size).
const fragmentOverhead = 1 + 3 + 2

// Config holds everything a Session is constructed with.
type Config struct {
	// LanesIn and LanesOut describe the session's lanes. Index i of each
	// names the same logical lane; both slices must be the same length.
	LanesIn  []lane.Kind
	LanesOut []lane.SendConfig

	// MaxPacketLen is the target MTU: the maximum size of any one
	// outbound packet, header included.
	MaxPacketLen int

	// Bandwidth is the outbound byte/sec token-bucket rate.
	Bandwidth float64
	// BandwidthBurst is the bucket's maximum burst size in bytes. Zero
	// defaults to Bandwidth (a one-second burst).
	BandwidthBurst int

	// DefaultPacketCap sizes the initial packet buffer allocation.
	DefaultPacketCap int

	// SendBufferBytesCap and RecvBufferBytesCap bound the memory governor.
	SendBufferBytesCap int
	RecvBufferBytesCap int

	// ReassemblyTimeout is how long an incomplete message may sit in the
	// reassembly buffer before Update evicts it.
	ReassemblyTimeout time.Duration
}

func (c Config) burst() int {
	if c.BandwidthBurst > 0 {
		return c.BandwidthBurst
	}
	return int(c.Bandwidth)
}

func (c Config) maxPayloadLen() int {
	return c.MaxPacketLen - wire.PacketHeaderLen - fragmentOverhead
}
