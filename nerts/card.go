package nerts

import (
	"nerts-lite/card"
	"nerts-lite/protocol"
)

// CardFlags is the flag byte of a card record.
type CardFlags uint8

const (
	FlagFaceUp CardFlags = 1 << iota
	FlagFlipped
	FlagInNertsPile
	FlagDisableFoundation
	FlagDisablePersonal
)

func (f CardFlags) FaceUp() bool            { return f&FlagFaceUp != 0 }
func (f CardFlags) Flipped() bool           { return f&FlagFlipped != 0 }
func (f CardFlags) InNertsPile() bool       { return f&FlagInNertsPile != 0 }
func (f CardFlags) DisableFoundation() bool { return f&FlagDisableFoundation != 0 }
func (f CardFlags) DisablePersonal() bool   { return f&FlagDisablePersonal != 0 }

// NoHolder marks a card nobody is dragging.
const NoHolder = -1

// Card is one loose card of a single tick. It has no identity across ticks.
type Card struct {
	Face   card.Card
	Pos    Position
	FaceUp bool
	Flags  CardFlags
	Height uint8
	Holder int
}

func cardFromMessage(m protocol.CardMessage) Card {
	c := Card{
		Face:   card.Card(m.Data),
		Pos:    Pos(m.X, m.Y),
		Flags:  CardFlags(m.Flags),
		Height: m.Height,
		Holder: NoHolder,
	}
	c.FaceUp = c.Flags.FaceUp()
	if m.Holder != protocol.HolderNone {
		c.Holder = int(m.Holder)
	}
	return c
}

func (c Card) Held() bool { return c.Holder != NoHolder }

// Playable reports whether the face is visible to us.
func (c Card) Playable() bool { return c.FaceUp && c.Face.Known() }

// CanPlayOn reports whether c may be placed on other in a center pile.
func (c Card) CanPlayOn(other Card) bool {
	return c.Playable() && other.Playable() && card.Follows(c.Face, other.Face)
}

// CanStartFoundation reports whether c may go on an empty center slot.
func (c Card) CanStartFoundation() bool {
	return c.Playable() && c.Face.IsAce()
}

func (c Card) String() string {
	if !c.FaceUp {
		return "##"
	}
	return c.Face.String()
}

// Pile is an ordered stack with the top card at index 0.
type Pile []Card

func (p Pile) Top() (Card, bool) {
	if len(p) == 0 {
		return Card{}, false
	}
	return p[0], true
}

func (p Pile) Len() int    { return len(p) }
func (p Pile) Empty() bool { return len(p) == 0 }
