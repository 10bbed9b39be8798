// Package transport holds the out-of-core-scope transport collaborators
// the session engine is designed to sit behind. The engine itself only
// ever sees opaque byte buffers; everything in this package is an
// example adapter, not part of the protocol core.
package transport

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrPipeClosed is returned by Send/Recv once Close has been called.
var ErrPipeClosed = errors.New("transport: pipe closed")

// Pipe is the minimal contract a concrete transport must satisfy to
// drive a session: exchange opaque byte buffers, nothing more. Real
// implementations (WebTransport, Steam Networking Sockets) live outside
// this module; MemPipe below is the in-process stand-in used by the demo
// and by tests that want to exercise two sessions end to end.
type Pipe interface {
	ID() uuid.UUID
	Send(ctx context.Context, packet []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// MemPipe connects two sessions directly over buffered channels. Each
// end is tagged with its own uuid so logs and metrics can distinguish
// which peer a packet crossed, the way a real transport would tag
// connections by socket or session id.
type MemPipe struct {
	id     uuid.UUID
	out    chan<- []byte
	in     <-chan []byte
	closed chan struct{}
}

// NewMemPipePair returns two connected ends of one in-memory pipe, each
// buffering up to bufSize in-flight packets before Send blocks.
func NewMemPipePair(bufSize int) (a, b *MemPipe) {
	ab := make(chan []byte, bufSize)
	ba := make(chan []byte, bufSize)
	a = &MemPipe{id: uuid.New(), out: ab, in: ba, closed: make(chan struct{})}
	b = &MemPipe{id: uuid.New(), out: ba, in: ab, closed: make(chan struct{})}
	return a, b
}

// ID returns this end's connection identifier.
func (p *MemPipe) ID() uuid.UUID { return p.id }

// Send delivers packet to the peer end, blocking until there is buffer
// room, the pipe is closed, or ctx is done.
func (p *MemPipe) Send(ctx context.Context, packet []byte) error {
	select {
	case <-p.closed:
		return ErrPipeClosed
	default:
	}
	select {
	case p.out <- packet:
		return nil
	case <-p.closed:
		return ErrPipeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks for the next packet from the peer end.
func (p *MemPipe) Recv(ctx context.Context) ([]byte, error) {
	select {
	case b, ok := <-p.in:
		if !ok {
			return nil, ErrPipeClosed
		}
		return b, nil
	case <-p.closed:
		return nil, ErrPipeClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close marks this end closed and signals the peer's Recv by closing the
// channel this end writes to. Idempotent; a second Close is a no-op.
func (p *MemPipe) Close() error {
	select {
	case <-p.closed:
		return nil
	default:
	}
	close(p.closed)
	close(p.out)
	return nil
}
