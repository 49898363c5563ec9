package autoplay

import (
	"fmt"

	"nerts-lite/nerts"
)

// ActionKind names the branch of the priority list a Plan came from.
type ActionKind byte

const (
	ActionNone         ActionKind = 0
	ActionWaitPlayers  ActionKind = 1
	ActionWaitPlay     ActionKind = 2
	ActionCallNerts    ActionKind = 3
	ActionPlayHeld     ActionKind = 4
	ActionDiscardHeld  ActionKind = 5
	ActionPickUp       ActionKind = 6
	ActionNertsToTable ActionKind = 7
	ActionDraw         ActionKind = 8
)

var ActionKindDictionary = map[ActionKind]string{
	ActionNone:         "none",
	ActionWaitPlayers:  "wait_players",
	ActionWaitPlay:     "wait_play",
	ActionCallNerts:    "call_nerts",
	ActionPlayHeld:     "play_held",
	ActionDiscardHeld:  "discard_held",
	ActionPickUp:       "pick_up",
	ActionNertsToTable: "nerts_to_table",
	ActionDraw:         "draw",
}

func (k ActionKind) String() string {
	if name, ok := ActionKindDictionary[k]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", byte(k))
}

// Intent is the change a step makes to the outgoing scratch. Flags are only
// ever raised; the send loop lowers them once transmitted.
type Intent struct {
	Move   bool
	Target nerts.Position

	LeftClick  bool
	RightClick bool
	// MakeReady doubles as "call nerts" during play.
	MakeReady bool
	Draw      bool

	Cosmetic  bool
	CardBack  uint8
	CardColor uint8
}

func (i Intent) Empty() bool { return i == Intent{} }

func (i Intent) Apply(s *nerts.GameState) {
	out := &s.Intent
	if i.Move {
		out.Target = i.Target
	}
	out.LeftClick = out.LeftClick || i.LeftClick
	out.RightClick = out.RightClick || i.RightClick
	out.MakeReady = out.MakeReady || i.MakeReady
	out.Draw = out.Draw || i.Draw
	if i.Cosmetic {
		out.CardBack = i.CardBack
		out.CardColor = i.CardColor
	}
}

// Condition is the observable effect a step waits for.
type Condition func(s *nerts.GameState) bool

type Step struct {
	Intent Intent
	Until  Condition
}

// Plan is what a Brain returns: the reason for logging plus the steps to run
// in order, each followed by a bounded wait on its condition.
type Plan struct {
	Kind   ActionKind
	Reason string
	Steps  []Step
}

// Brain picks the next action from the current state. Decide is called with
// the state lock held and must not block.
type Brain interface {
	Decide(s *nerts.GameState) Plan
	Name() string
}
