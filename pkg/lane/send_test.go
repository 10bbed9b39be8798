package lane_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanenet/pkg/lane"
	"lanenet/pkg/wire"
)

func frags(n int) []wire.Fragment {
	out := make([]wire.Fragment, n)
	for i := range out {
		out[i] = wire.Fragment{Payload: []byte{byte(i)}}
	}
	return out
}

func TestUnreliableSendOnceThenDropped(t *testing.T) {
	s := lane.NewSendState(lane.SendConfig{Kind: lane.UnreliableUnordered})
	s.Buffer(1, frags(2))
	now := time.Now()

	elig := s.Eligible(now, 0)
	require.Len(t, elig, 2)
	for _, e := range elig {
		s.MarkSent(e.MsgSeq, e.FragIndex, now)
	}

	assert.Equal(t, 0, s.Pending())
	assert.Empty(t, s.Eligible(now, 0))
}

func TestReliableRetransmitAfterResendAfter(t *testing.T) {
	s := lane.NewSendState(lane.SendConfig{Kind: lane.ReliableUnordered, ResendAfter: 100 * time.Millisecond})
	s.Buffer(1, frags(1))

	t0 := time.Unix(0, 0)
	elig := s.Eligible(t0, 0)
	require.Len(t, elig, 1)
	s.MarkSent(elig[0].MsgSeq, elig[0].FragIndex, t0)

	// Not yet eligible at +50ms.
	assert.Empty(t, s.Eligible(t0.Add(50*time.Millisecond), 0))

	// Eligible again at +120ms.
	elig2 := s.Eligible(t0.Add(120*time.Millisecond), 0)
	require.Len(t, elig2, 1)
	s.MarkSent(elig2[0].MsgSeq, elig2[0].FragIndex, t0.Add(120*time.Millisecond))

	// Acking removes it from the buffer entirely.
	complete := s.Ack(1, 0)
	assert.True(t, complete)
	assert.Equal(t, 0, s.Pending())
}

func TestReliableAckRemovesOnlyWhenAllFragmentsAcked(t *testing.T) {
	s := lane.NewSendState(lane.SendConfig{Kind: lane.ReliableOrdered, ResendAfter: time.Second})
	s.Buffer(5, frags(2))

	assert.False(t, s.Ack(5, 0))
	assert.Equal(t, 1, s.Pending())
	assert.True(t, s.Ack(5, 1))
	assert.Equal(t, 0, s.Pending())
}

func TestBufferedBytesTracksUnackedPayload(t *testing.T) {
	s := lane.NewSendState(lane.SendConfig{Kind: lane.ReliableUnordered, ResendAfter: time.Second})
	s.Buffer(1, []wire.Fragment{{Payload: []byte("abcd")}, {Payload: []byte("ef")}})
	assert.Equal(t, 6, s.BufferedBytes())

	s.Ack(1, 0)
	assert.Equal(t, 2, s.BufferedBytes())
}
