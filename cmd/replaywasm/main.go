//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"strings"
	"syscall/js"

	"nerts-lite/replay"
)

type runResponse struct {
	OK     bool                `json:"ok"`
	Tape   *replay.WireTape    `json:"tape,omitempty"`
	Result *replay.Result      `json:"result,omitempty"`
	Error  *replay.ReplayError `json:"error,omitempty"`
}

func main() {
	js.Global().Set("__nertsReplay", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return mustJSON(runResponse{
				OK:    false,
				Error: &replay.ReplayError{StepIndex: -1, Reason: "invalid_request", Message: "missing tape payload"},
			})
		}
		return mustJSON(handleRun(args[0].String()))
	}))

	select {}
}

func handleRun(raw string) runResponse {
	tape, err := replay.ReadTape(strings.NewReader(raw))
	if err != nil {
		return failure(err, "invalid_json")
	}
	res, err := replay.Run(tape, nil)
	if err != nil {
		resp := failure(err, "replay_failed")
		resp.Result = res
		return resp
	}
	return runResponse{
		OK:     true,
		Tape:   replay.ToWireTape(tape),
		Result: res,
	}
}

func failure(err error, reason string) runResponse {
	var replayErr *replay.ReplayError
	if errors.As(err, &replayErr) {
		return runResponse{OK: false, Error: replayErr}
	}
	return runResponse{
		OK:    false,
		Error: &replay.ReplayError{StepIndex: -1, Reason: reason, Message: err.Error()},
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		fallback := runResponse{
			OK:    false,
			Error: &replay.ReplayError{StepIndex: -1, Reason: "marshal_failed", Message: err.Error()},
		}
		b2, _ := json.Marshal(fallback)
		return string(b2)
	}
	return string(b)
}
