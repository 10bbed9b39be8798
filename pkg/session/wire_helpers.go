package session

import (
	"fmt"

	"lanenet/pkg/ack"
	"lanenet/pkg/seq"
	"lanenet/pkg/wire"
)

func packetHeaderFor(pseq seq.Num, acks ack.Set) wire.PacketHeader {
	return wire.PacketHeader{Seq: pseq, Acks: acks}
}

func oversizedFragmentError(size, mtu int) error {
	return fmt.Errorf("%w: fragment of %d bytes cannot fit in a packet at mtu %d", ErrOversizedFragment, size, mtu)
}

func (c Config) packetCap() int {
	if c.DefaultPacketCap > 0 {
		return c.DefaultPacketCap
	}
	return c.MaxPacketLen
}
