package replay

import (
	"errors"

	"nerts-lite/nerts"
	"nerts-lite/nerts/autoplay"
	"nerts-lite/protocol"
)

// Run feeds a tape through the frame decoder, the state model and brain,
// exactly as the live bot would minus the waits. A nil brain means a
// RuleBrain seeded from the tape.
func Run(tape *Tape, brain autoplay.Brain) (*Result, error) {
	if tape == nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "invalid_tape", Message: "nil tape"}
	}
	if brain == nil {
		brain = autoplay.NewRuleBrain(tape.Seed)
	}

	dec := protocol.NewFrameDecoder()
	state := nerts.NewGameState(tape.SelfID)
	res := &Result{Steps: make([]StepResult, 0, len(tape.Events))}

	for i, e := range tape.Events {
		fail := func(reason string, err error) error {
			return &ReplayError{
				StepIndex: int32(i),
				Reason:    reason,
				Message:   err.Error(),
				Expected: &ExpectedState{
					Phase:    state.Phase.String(),
					Active:   state.ActiveCount(),
					FrameLen: len(dec.Last()),
				},
			}
		}

		if e.Peer != tape.ServerID {
			res.Steps = append(res.Steps, StepResult{Seq: e.Seq, Skipped: "foreign_peer"})
			continue
		}
		payload, err := decodePayload(e)
		if err != nil {
			return res, fail("invalid_payload", err)
		}

		raw, err := dec.Decode(payload)
		if err != nil {
			if protocol.IsDesync(err) {
				res.Steps = append(res.Steps, StepResult{Seq: e.Seq, Skipped: "desync"})
				continue
			}
			return res, fail("format", err)
		}
		dec.Commit(raw)

		msg, err := protocol.DecodeServerMessage(raw)
		if err != nil {
			return res, fail("format", err)
		}
		if err := state.Update(msg); err != nil {
			return res, fail(updateReason(err), err)
		}

		plan := brain.Decide(state)
		d := &Decision{Kind: plan.Kind.String(), Reason: plan.Reason}
		for _, step := range plan.Steps {
			step.Intent.Apply(state)
			if step.Intent.Move {
				d.Targets = append(d.Targets, [2]int16{step.Intent.Target.X, step.Intent.Target.Y})
			}
		}
		state.TakeIntent()

		occupied, _ := state.CenterOccupancy()
		res.Steps = append(res.Steps, StepResult{
			Seq:      e.Seq,
			Phase:    state.Phase.String(),
			Active:   state.ActiveCount(),
			Occupied: occupied,
			Decision: d,
		})
	}
	return res, nil
}

func updateReason(err error) string {
	var ce *nerts.ClassificationError
	if errors.As(err, &ce) {
		return "classification"
	}
	var ie *nerts.InvariantError
	if errors.As(err, &ie) {
		return "invariant"
	}
	return "update_failed"
}
