package session

import "errors"

// SendError values, returned directly from Send.
var (
	ErrTooManyFragments     = errors.New("session: message needs more fragments than a message can carry")
	ErrOversizedMessage     = errors.New("session: message payload exceeds what the configured MTU can ever carry")
	ErrOutOfMemoryUnreliable = errors.New("session: send buffer budget exceeded on an unreliable lane, message not buffered")
	ErrOutOfMemoryReliable  = errors.New("session: send buffer budget exceeded on a reliable lane")
	ErrInvalidLane          = errors.New("session: lane index out of range")
)

// RecvError values, surfaced from Recv when an inbound packet is malformed.
// The packet is discarded; the session itself remains usable.
var (
	ErrShortRead               = errors.New("session: short read decoding packet")
	ErrBadVarint               = errors.New("session: malformed varint")
	ErrInvalidLaneIndex        = errors.New("session: fragment names a lane index out of range")
	ErrInvalidFragIndex        = errors.New("session: invalid fragment index")
	ErrInvalidFragSize         = errors.New("session: invalid fragment size")
	ErrInconsistentLastFragment = errors.New("session: inconsistent last fragment")
)

// SessionFatal values. Once returned, they are latched: every subsequent
// Send/Flush/Recv/Update call returns the same error until the owner
// recreates the session.
var (
	ErrMtuTooSmall = errors.New("session: mtu too small for the configured max payload")
)

// ErrOversizedFragment signals a configuration bug: a single fragment
// (after fragmentation) does not fit in a packet even on its own.
var ErrOversizedFragment = errors.New("session: fragment too large to fit any packet at the configured mtu")
