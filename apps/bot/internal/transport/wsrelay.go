package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	frameHeaderLen = 9 // u8 channel + u64 LE peer

	relayReadLimit  = 1 << 20
	relayPongWait   = 60 * time.Second
	relayPingPeriod = 30 * time.Second
	relayWriteWait  = 10 * time.Second
	relaySendBuffer = 256
)

// WSRelay speaks to a local bridge process that owns the real peer session.
// Every binary websocket message is one packet: [u8 channel][u64 LE peer][payload].
type WSRelay struct {
	conn *websocket.Conn
	log  *zap.Logger
	in   *inbox

	send chan []byte
	done chan struct{}
	once sync.Once
}

func DialRelay(ctx context.Context, url string, log *zap.Logger) (*WSRelay, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}
	r := &WSRelay{
		conn: conn,
		log:  log.Named("relay"),
		in:   newInbox(),
		send: make(chan []byte, relaySendBuffer),
		done: make(chan struct{}),
	}
	go r.readPump()
	go r.writePump()
	r.log.Info("relay connected", zap.String("url", url))
	return r, nil
}

func EncodeFrame(channel uint8, peer uint64, payload []byte) []byte {
	buf := make([]byte, frameHeaderLen, frameHeaderLen+len(payload))
	buf[0] = channel
	binary.LittleEndian.PutUint64(buf[1:], peer)
	return append(buf, payload...)
}

func DecodeFrame(frame []byte) (Packet, error) {
	if len(frame) < frameHeaderLen {
		return Packet{}, fmt.Errorf("relay frame too short: %d bytes", len(frame))
	}
	return Packet{
		Channel: frame[0],
		Peer:    binary.LittleEndian.Uint64(frame[1:frameHeaderLen]),
		Data:    frame[frameHeaderLen:],
	}, nil
}

func (r *WSRelay) Send(ctx context.Context, peer uint64, channel uint8, data []byte) error {
	frame := EncodeFrame(channel, peer, data)
	select {
	case <-r.done:
		return ErrTransportClosed
	default:
	}
	select {
	case r.send <- frame:
		return nil
	case <-r.done:
		return ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *WSRelay) Available(channel uint8) (int, bool) {
	return r.in.available(channel)
}

func (r *WSRelay) Receive(channel uint8, buf []byte) (uint64, int, bool, error) {
	return r.in.receive(channel, buf)
}

func (r *WSRelay) Close() error {
	r.shutdown(nil)
	return nil
}

func (r *WSRelay) shutdown(cause error) {
	r.once.Do(func() {
		r.in.close(cause)
		close(r.done)
		_ = r.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = r.conn.Close()
	})
}

func (r *WSRelay) readPump() {
	var cause error
	defer func() { r.shutdown(cause) }()

	r.conn.SetReadLimit(relayReadLimit)
	_ = r.conn.SetReadDeadline(time.Now().Add(relayPongWait))
	r.conn.SetPongHandler(func(string) error {
		return r.conn.SetReadDeadline(time.Now().Add(relayPongWait))
	})

	for {
		messageType, message, err := r.conn.ReadMessage()
		if err != nil {
			select {
			case <-r.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					r.log.Warn("relay read failed", zap.Error(err))
					cause = err
				}
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		p, err := DecodeFrame(message)
		if err != nil {
			r.log.Warn("dropping relay frame", zap.Error(err))
			continue
		}
		r.in.push(p)
	}
}

func (r *WSRelay) writePump() {
	ticker := time.NewTicker(relayPingPeriod)
	defer func() {
		ticker.Stop()
		r.shutdown(nil)
	}()

	for {
		select {
		case frame := <-r.send:
			_ = r.conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
			if err := r.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				r.log.Warn("relay write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = r.conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
			if err := r.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.done:
			return
		}
	}
}
