package nerts

import (
	"errors"
	"fmt"
	"strings"

	"nerts-lite/protocol"
)

var ErrNilSnapshot = errors.New("nil snapshot")

// Classification failure reasons.
const (
	ReasonHolderOutOfRange = "holder_out_of_range"
	ReasonCenterOccupied   = "center_occupied"
	ReasonDrawDownOccupied = "draw_down_occupied"
	ReasonDrawUpOccupied   = "draw_up_occupied"
	ReasonUnmatched        = "unmatched"
	ReasonSelfMissing      = "self_missing"
)

// ClassificationError is raised when a loose card cannot be assigned to
// exactly one pile. It carries the raw record and the layout we expected so
// the mismatch can be diagnosed from a log line.
type ClassificationError struct {
	Reason  string
	Index   int // card index in the snapshot, -1 when not about a card
	Card    protocol.CardMessage
	Anchors []Anchors
}

func (e *ClassificationError) Error() string {
	if e.Index < 0 {
		return "classify: " + e.Reason
	}
	var b strings.Builder
	fmt.Fprintf(&b, "classify: %s: card #%d at (%d,%d) data=%d flags=%#x height=%d holder=%d",
		e.Reason, e.Index, e.Card.X, e.Card.Y, e.Card.Data, e.Card.Flags, e.Card.Height, e.Card.Holder)
	for _, a := range e.Anchors {
		fmt.Fprintf(&b, "; player %d origin=%s flipped=%t down=%s up=%s nerts=%s table=%v",
			a.PlayerID, a.Origin, a.Flipped, a.DrawDown, a.DrawUp, a.Nerts, a.Table)
	}
	return b.String()
}

// InvariantError reports a board that decoded but does not match the layout
// the game deals.
type InvariantError struct {
	Rule     string
	PlayerID uint64
	Detail   string
}

func (e *InvariantError) Error() string {
	if e.PlayerID != 0 {
		return fmt.Sprintf("invariant %s (player %d): %s", e.Rule, e.PlayerID, e.Detail)
	}
	return fmt.Sprintf("invariant %s: %s", e.Rule, e.Detail)
}

// IsFatal reports whether err means our model of the wire or the board is
// wrong. Desyncs are not fatal.
func IsFatal(err error) bool {
	if err == nil || protocol.IsDesync(err) {
		return false
	}
	var ce *ClassificationError
	var ie *InvariantError
	return protocol.IsFormat(err) || errors.As(err, &ce) || errors.As(err, &ie) || errors.Is(err, ErrNilSnapshot)
}
