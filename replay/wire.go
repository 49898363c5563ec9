package replay

import (
	"encoding/json"
	"fmt"
	"io"
)

// WireTape is the camelCase form consumed by browser tooling.
type WireTape struct {
	TapeVersion int             `json:"tapeVersion"`
	SessionID   string          `json:"sessionId,omitempty"`
	SelfID      string          `json:"selfId"`
	ServerID    string          `json:"serverId"`
	Seed        int64           `json:"seed"`
	Events      []WireTapeEvent `json:"events"`
}

type WireTapeEvent struct {
	Seq        uint64 `json:"seq"`
	Peer       string `json:"peer"`
	PayloadB64 string `json:"payloadB64"`
}

// ToWireTape converts ids to strings; they do not survive a float64 round trip.
func ToWireTape(tape *Tape) *WireTape {
	if tape == nil {
		return nil
	}
	out := &WireTape{
		TapeVersion: tape.TapeVersion,
		SessionID:   tape.SessionID,
		SelfID:      fmt.Sprint(tape.SelfID),
		ServerID:    fmt.Sprint(tape.ServerID),
		Seed:        tape.Seed,
		Events:      make([]WireTapeEvent, 0, len(tape.Events)),
	}
	for _, e := range tape.Events {
		out.Events = append(out.Events, WireTapeEvent{
			Seq:        e.Seq,
			Peer:       fmt.Sprint(e.Peer),
			PayloadB64: e.PayloadB64,
		})
	}
	return out
}

func ReadTape(r io.Reader) (*Tape, error) {
	var tape Tape
	if err := json.NewDecoder(r).Decode(&tape); err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "invalid_tape", Message: err.Error()}
	}
	if tape.TapeVersion != TapeVersion {
		return nil, &ReplayError{StepIndex: -1, Reason: "invalid_tape",
			Message: fmt.Sprintf("unsupported tape version %d", tape.TapeVersion)}
	}
	return &tape, nil
}

func WriteTape(w io.Writer, tape *Tape) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tape)
}
