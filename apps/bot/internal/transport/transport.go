package transport

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Channel numbers on the peer session.
const (
	ChannelClient uint8 = 1 // server -> bot snapshots
	ChannelServer uint8 = 2 // bot -> server intents
)

var ErrTransportClosed = errors.New("transport closed")

// Transport is the slice of the peer session the bot needs. Reliability and
// ordering are the session's problem, not ours.
type Transport interface {
	Send(ctx context.Context, peer uint64, channel uint8, data []byte) error
	// Available reports the size of the next queued packet on channel.
	Available(channel uint8) (int, bool)
	// Receive copies the next packet into buf. A buf smaller than the packet
	// yields io.ErrShortBuffer and the packet stays queued.
	Receive(channel uint8, buf []byte) (peer uint64, n int, ok bool, err error)
	Close() error
}

type Packet struct {
	Peer    uint64
	Channel uint8
	Data    []byte
}

// inbox is a set of per-channel FIFO queues shared by the implementations.
type inbox struct {
	mu     sync.Mutex
	queues map[uint8][]Packet
	closed bool
	cause  error
}

func newInbox() *inbox {
	return &inbox{queues: make(map[uint8][]Packet)}
}

func (b *inbox) push(p Packet) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.queues[p.Channel] = append(b.queues[p.Channel], p)
	return true
}

func (b *inbox) available(channel uint8) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queues[channel]
	if len(q) == 0 {
		return 0, false
	}
	return len(q[0].Data), true
}

// receive drains queued packets even after close; the close error surfaces
// only once the channel is empty.
func (b *inbox) receive(channel uint8, buf []byte) (uint64, int, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queues[channel]
	if len(q) == 0 {
		if b.closed {
			return 0, 0, false, b.closeErr()
		}
		return 0, 0, false, nil
	}
	p := q[0]
	if len(buf) < len(p.Data) {
		return 0, 0, false, io.ErrShortBuffer
	}
	n := copy(buf, p.Data)
	q[0] = Packet{}
	b.queues[channel] = q[1:]
	return p.Peer, n, true, nil
}

func (b *inbox) close(cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.cause = cause
}

func (b *inbox) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *inbox) closeErr() error {
	if b.cause != nil {
		return errors.Join(ErrTransportClosed, b.cause)
	}
	return ErrTransportClosed
}
