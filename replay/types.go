package replay

// Tape is a recorded inbound stream: the raw compressed datagrams exactly as
// they came off the transport, in order.
type Tape struct {
	TapeVersion int         `json:"tape_version"`
	SessionID   string      `json:"session_id,omitempty"`
	SelfID      uint64      `json:"self_id"`
	ServerID    uint64      `json:"server_id"`
	Seed        int64       `json:"seed"`
	Events      []TapeEvent `json:"events"`
}

type TapeEvent struct {
	Seq        uint64 `json:"seq"`
	Peer       uint64 `json:"peer"`
	PayloadB64 string `json:"payload_b64"`
}

// Result is what replaying a tape produced, one entry per tick.
type Result struct {
	Steps []StepResult `json:"steps"`
}

type StepResult struct {
	Seq      uint64    `json:"seq"`
	Phase    string    `json:"phase"`
	Skipped  string    `json:"skipped,omitempty"`
	Active   int       `json:"active"`
	Occupied int       `json:"center_occupied"`
	Decision *Decision `json:"decision,omitempty"`
}

type Decision struct {
	Kind    string     `json:"kind"`
	Reason  string     `json:"reason"`
	Targets [][2]int16 `json:"targets,omitempty"`
}
