package ledger

import (
	"context"

	"nerts-lite/replay"
)

// LoadTape rebuilds a replayable tape from a recorded session.
func LoadTape(ctx context.Context, svc Service, sessionID string) (*replay.Tape, error) {
	sess, err := svc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ticks, err := svc.GetTicks(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	tape := &replay.Tape{
		TapeVersion: replay.TapeVersion,
		SessionID:   sess.SessionID,
		SelfID:      sess.SelfID,
		ServerID:    sess.ServerID,
		Seed:        sess.Seed,
		Events:      make([]replay.TapeEvent, 0, len(ticks)),
	}
	for _, t := range ticks {
		tape.Events = append(tape.Events, replay.TapeEvent{
			Seq:        t.Seq,
			Peer:       t.Peer,
			PayloadB64: t.PayloadB64,
		})
	}
	return tape, nil
}
