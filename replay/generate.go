package replay

import (
	"encoding/base64"
	"fmt"

	"nerts-lite/protocol"
)

const TapeVersion = 1

// Recorder accumulates inbound datagrams into a tape.
type Recorder struct {
	tape Tape
}

func NewRecorder(sessionID string, selfID, serverID uint64, seed int64) *Recorder {
	return &Recorder{tape: Tape{
		TapeVersion: TapeVersion,
		SessionID:   sessionID,
		SelfID:      selfID,
		ServerID:    serverID,
		Seed:        seed,
	}}
}

func (r *Recorder) Add(peer uint64, payload []byte) {
	r.tape.Events = append(r.tape.Events, TapeEvent{
		Seq:        uint64(len(r.tape.Events)) + 1,
		Peer:       peer,
		PayloadB64: base64.StdEncoding.EncodeToString(payload),
	})
}

func (r *Recorder) Len() int { return len(r.tape.Events) }

// Tape returns a copy of what has been recorded so far.
func (r *Recorder) Tape() *Tape {
	out := r.tape
	out.Events = append([]TapeEvent(nil), r.tape.Events...)
	return &out
}

// GenerateTape encodes snapshots the way the game server streams them: a key
// frame first and whenever the snapshot length changes, deltas otherwise.
func GenerateTape(selfID, serverID uint64, seed int64, msgs []*protocol.ServerMessage) (*Tape, error) {
	rec := NewRecorder("", selfID, serverID, seed)
	var prev []byte
	for i, m := range msgs {
		cur := m.Encode()
		var (
			payload []byte
			err     error
		)
		if prev == nil || len(prev) != len(cur) {
			payload, err = protocol.EncodeKeyFrame(cur)
		} else {
			payload, err = protocol.EncodeDelta(prev, cur)
		}
		if err != nil {
			return nil, &ReplayError{StepIndex: int32(i), Reason: "encode_failed", Message: err.Error()}
		}
		rec.Add(serverID, payload)
		prev = cur
	}
	return rec.Tape(), nil
}

func decodePayload(e TapeEvent) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(e.PayloadB64)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", e.Seq, err)
	}
	return b, nil
}
