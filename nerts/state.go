package nerts

import (
	"fmt"
	"sort"

	"nerts-lite/protocol"
)

// CenterSlot is one shared foundation position.
type CenterSlot struct {
	Pos  Position
	Card *Card
}

type Notification struct {
	PlayerID uint64
	Type     uint8
}

// Intent is the outgoing scratch the decision loop writes and the send loop
// drains. Target, CardBack and CardColor persist; the flags are one-shot.
type Intent struct {
	Target       Position
	LeftClick    bool
	RightClick   bool
	MakeReady    bool
	Draw         bool
	CardBack     uint8
	CardColor    uint8
	SendKeyFrame bool
}

// GameState is the reconstructed view of the game.
type GameState struct {
	Initialized bool
	Phase       Phase
	Players     []Player
	Center      []CenterSlot

	SelfID    uint64
	selfIndex int

	Countdown    *uint8
	ShuffleCount uint8
	Notification *Notification

	// Ticks counts applied snapshots.
	Ticks uint64

	Intent Intent
}

func NewGameState(selfID uint64) *GameState {
	return &GameState{
		Phase:     PhaseLobby,
		SelfID:    selfID,
		selfIndex: -1,
	}
}

// Update applies one decoded snapshot. On error the state is left exactly as
// it was before the call.
func (s *GameState) Update(msg *protocol.ServerMessage) error {
	if msg == nil {
		return ErrNilSnapshot
	}

	var b *board
	if msg.Phase == PhasePlay {
		var err error
		b, err = buildBoard(msg, s.SelfID)
		if err != nil {
			return err
		}
	}

	s.Initialized = true
	s.Phase = msg.Phase
	s.ShuffleCount = msg.ShuffleCount
	s.Countdown = nil
	if msg.EmergencyShuffleCountdown != nil {
		v := *msg.EmergencyShuffleCountdown
		s.Countdown = &v
	}
	s.Notification = nil
	if msg.Notification != nil {
		s.Notification = &Notification{PlayerID: msg.Notification.PlayerID, Type: msg.Notification.Type}
	}
	if b != nil {
		s.Players = b.players
		s.Center = b.center
		s.selfIndex = b.self
	}
	s.Ticks++
	return nil
}

// board is the per-tick arena. It is discarded if anything fails.
type board struct {
	players []Player
	center  []CenterSlot
	active  []int
	self    int
}

func buildBoard(msg *protocol.ServerMessage, selfID uint64) (*board, error) {
	b := &board{self: -1}

	b.center = make([]CenterSlot, len(msg.CardOutlines))
	for i, o := range msg.CardOutlines {
		b.center[i] = CenterSlot{Pos: Pos(o.X, o.Y)}
	}
	sort.SliceStable(b.center, func(i, j int) bool { return b.center[i].Pos.X < b.center[j].Pos.X })

	b.players = make([]Player, len(msg.Players))
	for i, m := range msg.Players {
		b.players[i] = playerFromMessage(m)
		if m.PlayerID == selfID {
			b.self = i
		}
		if m.IsPlaying {
			b.active = append(b.active, i)
		}
	}
	if b.self < 0 {
		return nil, &ClassificationError{Reason: ReasonSelfMissing, Index: -1}
	}
	if len(b.active) == 0 {
		return b, nil
	}

	for i, m := range msg.Cards {
		if err := b.place(i, m); err != nil {
			return nil, err
		}
	}
	b.sortPiles()
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *board) place(index int, m protocol.CardMessage) error {
	c := cardFromMessage(m)
	fail := func(reason string) error {
		return &ClassificationError{Reason: reason, Index: index, Card: m, Anchors: b.anchors()}
	}

	if c.Held() {
		if c.Holder >= len(b.active) {
			return fail(ReasonHolderOutOfRange)
		}
		p := &b.players[b.active[c.Holder]]
		p.Held = append(p.Held, c)
		return nil
	}

	for i := range b.center {
		slot := &b.center[i]
		if slot.Pos != c.Pos {
			continue
		}
		if slot.Card != nil {
			return fail(ReasonCenterOccupied)
		}
		slot.Card = &c
		return nil
	}

	for _, ai := range b.active {
		p := &b.players[ai]
		switch {
		case c.Pos == p.DrawDownPos():
			if p.DrawDown != nil {
				return fail(ReasonDrawDownOccupied)
			}
			p.DrawDown = &c
			return nil
		case c.Pos == p.DrawUpPos():
			if p.DrawUp != nil {
				return fail(ReasonDrawUpOccupied)
			}
			p.DrawUp = &c
			return nil
		case p.inNertsBand(c.Pos):
			p.Nerts = append(p.Nerts, c)
			return nil
		}
	}

	for _, ai := range b.active {
		p := &b.players[ai]
		if !p.Owns(c.Pos) {
			continue
		}
		if t, ok := p.tableIndex(c.Pos); ok {
			p.Table[t] = append(p.Table[t], c)
			return nil
		}
	}
	return fail(ReasonUnmatched)
}

func (b *board) anchors() []Anchors {
	out := make([]Anchors, 0, len(b.active))
	for _, ai := range b.active {
		out = append(out, b.players[ai].Anchors())
	}
	return out
}

// sortPiles puts the top card first. The near side fans its nerts pile to the
// right and its table piles down the board; the far side mirrors both.
func (b *board) sortPiles() {
	for i := range b.players {
		p := &b.players[i]
		sortPile(p.Nerts, p.Flipped, func(c Card) int16 { return c.Pos.X })
		sortPile(p.Held, p.Flipped, func(c Card) int16 { return c.Pos.Y })
		for t := range p.Table {
			sortPile(p.Table[t], p.Flipped, func(c Card) int16 { return c.Pos.Y })
		}
	}
}

func sortPile(p Pile, flipped bool, key func(Card) int16) {
	sort.SliceStable(p, func(i, j int) bool {
		if flipped {
			return key(p[i]) < key(p[j])
		}
		return key(p[i]) > key(p[j])
	})
}

func (b *board) validate() error {
	for seat, ai := range b.active {
		p := &b.players[ai]
		if p.Flipped != (seat%2 == 1) {
			return &InvariantError{Rule: "flip_alternation", PlayerID: p.ID,
				Detail: fmt.Sprintf("active seat %d has flipped=%t", seat, p.Flipped)}
		}
		want := OriginY
		if p.Flipped {
			want = OriginYFlipped
		}
		if p.Origin.Y != want {
			return &InvariantError{Rule: "origin_y", PlayerID: p.ID,
				Detail: fmt.Sprintf("origin y %d, want %d", p.Origin.Y, want)}
		}
		// piles can outnumber the minimum after a player leaves
		if need := MinTablePiles(len(b.active)); len(p.Table) < need {
			return &InvariantError{Rule: "table_piles", PlayerID: p.ID,
				Detail: fmt.Sprintf("%d table piles, want at least %d", len(p.Table), need)}
		}
	}
	if need := MinCenterSlots * len(b.active); len(b.center) < need {
		return &InvariantError{Rule: "center_slots",
			Detail: fmt.Sprintf("%d center slots, want at least %d", len(b.center), need)}
	}
	return nil
}

// Self returns the bot's own player, once a Play tick has been applied.
func (s *GameState) Self() (*Player, bool) {
	if s.selfIndex < 0 || s.selfIndex >= len(s.Players) {
		return nil, false
	}
	return &s.Players[s.selfIndex], true
}

func (s *GameState) Active() []*Player {
	var out []*Player
	for i := range s.Players {
		if s.Players[i].Playing {
			out = append(out, &s.Players[i])
		}
	}
	return out
}

func (s *GameState) ActiveCount() int {
	n := 0
	for i := range s.Players {
		if s.Players[i].Playing {
			n++
		}
	}
	return n
}

func (s *GameState) CenterOccupancy() (occupied, total int) {
	for _, slot := range s.Center {
		if slot.Card != nil {
			occupied++
		}
	}
	return occupied, len(s.Center)
}

// TakeIntent builds the outbound message and clears the one-shot flags.
func (s *GameState) TakeIntent() protocol.ClientMessage {
	in := &s.Intent
	m := protocol.ClientMessage{
		X:            in.Target.X,
		Y:            in.Target.Y,
		LeftClick:    in.LeftClick,
		RightClick:   in.RightClick,
		MakeReady:    in.MakeReady,
		Draw:         in.Draw,
		CardBack:     in.CardBack,
		CardColor:    in.CardColor,
		SendKeyFrame: in.SendKeyFrame,
	}
	in.LeftClick = false
	in.RightClick = false
	in.MakeReady = false
	in.Draw = false
	in.SendKeyFrame = false
	return m
}
