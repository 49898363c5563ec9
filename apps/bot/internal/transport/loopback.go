package transport

import (
	"context"
	"sync"
)

// Loopback is an in-memory Transport. Tests and the replay tool inject
// inbound packets and inspect what the bot sent.
type Loopback struct {
	in *inbox

	mu     sync.Mutex
	sent   map[uint8][]Packet
	notify chan struct{}
}

func NewLoopback() *Loopback {
	return &Loopback{
		in:     newInbox(),
		sent:   make(map[uint8][]Packet),
		notify: make(chan struct{}, 1),
	}
}

func (l *Loopback) Inject(peer uint64, channel uint8, data []byte) {
	buf := append([]byte(nil), data...)
	l.in.push(Packet{Peer: peer, Channel: channel, Data: buf})
}

func (l *Loopback) Send(ctx context.Context, peer uint64, channel uint8, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.in.isClosed() {
		return ErrTransportClosed
	}
	buf := append([]byte(nil), data...)
	l.mu.Lock()
	l.sent[channel] = append(l.sent[channel], Packet{Peer: peer, Channel: channel, Data: buf})
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
	return nil
}

// Sent returns a copy of everything sent on channel so far.
func (l *Loopback) Sent(channel uint8) []Packet {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Packet(nil), l.sent[channel]...)
}

// SentSignal fires (coalesced) after every Send.
func (l *Loopback) SentSignal() <-chan struct{} {
	return l.notify
}

func (l *Loopback) Available(channel uint8) (int, bool) {
	return l.in.available(channel)
}

func (l *Loopback) Receive(channel uint8, buf []byte) (uint64, int, bool, error) {
	return l.in.receive(channel, buf)
}

func (l *Loopback) Close() error {
	l.in.close(nil)
	return nil
}
