package nerts

import "nerts-lite/protocol"

// Player is rebuilt from its record on every Play tick.
type Player struct {
	ID      uint64
	Cursor  Position
	Origin  Position
	Flipped bool
	Playing bool
	Ready   bool

	CanCallNerts bool
	CalledNerts  bool

	CardColor  uint8
	TotalScore int16
	NertsCount uint8

	Nerts    Pile
	DrawDown *Card
	DrawUp   *Card
	Table    []Pile
	Held     Pile
}

func playerFromMessage(m protocol.PlayerMessage) Player {
	return Player{
		ID:           m.PlayerID,
		Cursor:       Pos(m.CursorX, m.CursorY),
		Origin:       Pos(m.OriginX, m.OriginY),
		Flipped:      m.Flipped,
		Playing:      m.IsPlaying,
		Ready:        m.IsReady,
		CanCallNerts: m.CanCallNerts,
		CalledNerts:  m.CalledNerts,
		CardColor:    m.CardColor,
		TotalScore:   m.TotalScore,
		NertsCount:   m.NertsCards,
		Table:        make([]Pile, m.TableauCount),
	}
}

// ExtraWidth is the layout widening for five and six table piles.
func (p *Player) ExtraWidth() int16 {
	switch len(p.Table) {
	case 6:
		return 320
	case 5:
		return 160
	default:
		return 0
	}
}

func (p *Player) DrawDownPos() Position {
	if p.Flipped {
		return p.Origin.Add(drawDownOffsetFlipped).Add(Pos(p.ExtraWidth(), 0))
	}
	return p.Origin.Add(drawDownOffset)
}

func (p *Player) DrawUpPos() Position {
	if p.Flipped {
		return p.Origin.Add(drawUpOffsetFlipped).Add(Pos(p.ExtraWidth(), 0))
	}
	return p.Origin.Add(drawUpOffset)
}

// NertsPos is where the last (bottom) card of the nerts pile sits.
func (p *Player) NertsPos() Position {
	if p.Flipped {
		return p.Origin.Add(nertsOffsetFlipped).Add(Pos(p.ExtraWidth(), 0))
	}
	return p.Origin.Add(nertsOffset)
}

// inNertsBand reports whether pos is on the nerts row, within the fanned band
// that extends away from the bottom card.
func (p *Player) inNertsBand(pos Position) bool {
	anchor := p.NertsPos()
	if pos.Y != anchor.Y {
		return false
	}
	if p.Flipped {
		return pos.X >= anchor.X-nertsBand && pos.X <= anchor.X
	}
	return pos.X >= anchor.X && pos.X <= anchor.X+nertsBand
}

// TablePositions returns the base position of every table pile, left pile
// first from the player's point of view.
func (p *Player) TablePositions() []Position {
	first := p.Origin.Add(tableOffset)
	step := tableStep
	if p.Flipped {
		first = p.Origin.Add(tableOffsetFlipped).Add(Pos(p.ExtraWidth(), 0))
		step = -tableStep
	}
	out := make([]Position, len(p.Table))
	for i := range out {
		out[i] = first.Add(Pos(step*int16(i), 0))
	}
	return out
}

// tableIndex returns the pile whose column box contains pos.
func (p *Player) tableIndex(pos Position) (int, bool) {
	lift := tableBoxLift
	if p.Flipped {
		lift = tableBoxLiftFlipped
	}
	for i, base := range p.TablePositions() {
		if pos.Within(base.Sub(lift), tableBoxSize) {
			return i, true
		}
	}
	return 0, false
}

// Owns reports whether pos lies in the player's board area.
func (p *Player) Owns(pos Position) bool {
	return pos.Within(p.Origin, Pos(ownerWidth+p.ExtraWidth(), ownerHeight))
}

// Anchors lists the expected positions for diagnostics.
func (p *Player) Anchors() Anchors {
	return Anchors{
		PlayerID: p.ID,
		Origin:   p.Origin,
		Flipped:  p.Flipped,
		DrawDown: p.DrawDownPos(),
		DrawUp:   p.DrawUpPos(),
		Nerts:    p.NertsPos(),
		Table:    p.TablePositions(),
	}
}

// EmptyTable returns the first table pile without cards.
func (p *Player) EmptyTable() (int, bool) {
	for i, pile := range p.Table {
		if pile.Empty() {
			return i, true
		}
	}
	return 0, false
}

// Anchors is the resolved layout of one player.
type Anchors struct {
	PlayerID uint64
	Origin   Position
	Flipped  bool
	DrawDown Position
	DrawUp   Position
	Nerts    Position
	Table    []Position
}
