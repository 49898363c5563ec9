package autoplay

import (
	"fmt"
	"math/rand"

	"nerts-lite/nerts"
)

// Random ranges, half-open.
const (
	jitterMinX, jitterMaxX = 10, 50
	jitterMinY, jitterMaxY = 10, 80

	drawMinX, drawMaxX = 200, 3800
	drawMinY, drawMaxY = 200, 2200

	cosmeticCount = 12
)

// RuleBrain is the greedy priority list: ready up, call nerts, place the held
// card, pick up anything playable, fill an empty table pile from the nerts
// pile, and otherwise draw.
type RuleBrain struct {
	rng *rand.Rand
}

func NewRuleBrain(seed int64) *RuleBrain {
	return &RuleBrain{rng: rand.New(rand.NewSource(seed))}
}

func (b *RuleBrain) Name() string { return "rule" }

func (b *RuleBrain) Decide(s *nerts.GameState) Plan {
	if len(s.Players) == 0 || (s.Phase == nerts.PhasePlay && s.ActiveCount() == 0) {
		return Plan{
			Kind:   ActionWaitPlayers,
			Reason: "waiting for players",
			Steps:  []Step{{Until: hasActivePlayers}},
		}
	}

	self, ok := s.Self()
	if s.Phase != nerts.PhasePlay {
		step := Step{Until: phaseIs(nerts.PhasePlay)}
		if !ok || !self.Ready {
			step.Intent.MakeReady = true
		}
		return Plan{
			Kind:   ActionWaitPlay,
			Reason: fmt.Sprintf("waiting for play (phase %s)", s.Phase),
			Steps:  []Step{step},
		}
	}
	if !ok || !self.Playing {
		return Plan{
			Kind:   ActionWaitPlay,
			Reason: "not seated in this round",
			Steps:  []Step{{Until: selfPlaying}},
		}
	}

	if self.CanCallNerts {
		return Plan{
			Kind:   ActionCallNerts,
			Reason: "calling nerts",
			Steps: []Step{{
				Intent: Intent{MakeReady: true},
				Until:  func(s *nerts.GameState) bool { return !selfField(s, func(p *nerts.Player) bool { return p.CanCallNerts }) },
			}},
		}
	}

	// A drag carries exactly one card. Anything else is not a state we can
	// place from, so let go and start over.
	switch n := self.Held.Len(); {
	case n == 1:
		held, _ := self.Held.Top()
		return b.placeHeld(s, held)
	case n > 1:
		return dropHeld(fmt.Sprintf("holding %d cards, dropping them", n))
	}

	for _, c := range playableCandidates(self) {
		slot, ok := findSlot(s, c)
		if !ok {
			continue
		}
		target := b.jitter(c.Pos, s.Intent.Target)
		return Plan{
			Kind:   ActionPickUp,
			Reason: fmt.Sprintf("picking up %s to play on %s", c, slotName(s.Center[slot])),
			Steps:  []Step{clickAt(target)},
		}
	}

	if top, ok := self.Nerts.Top(); ok {
		if t, ok := self.EmptyTable(); ok {
			pick := b.jitter(top.Pos, s.Intent.Target)
			drop := b.jitter(self.TablePositions()[t], pick)
			return Plan{
				Kind:   ActionNertsToTable,
				Reason: fmt.Sprintf("moving nerts card %s to table pile %d", top, t),
				Steps:  []Step{clickAt(pick), clickAt(drop)},
			}
		}
	}

	target := nerts.Pos(
		int16(drawMinX+b.rng.Intn(drawMaxX-drawMinX)),
		int16(drawMinY+b.rng.Intn(drawMaxY-drawMinY)),
	)
	intent := Intent{
		Move:      true,
		Target:    target,
		Draw:      true,
		Cosmetic:  true,
		CardBack:  uint8(b.rng.Intn(cosmeticCount)),
		CardColor: uint8(b.rng.Intn(cosmeticCount)),
	}
	return Plan{
		Kind:   ActionDraw,
		Reason: "drawing",
		Steps: []Step{{
			Intent: intent,
			Until: func(s *nerts.GameState) bool {
				return cursorAt(target)(s) || selfField(s, func(p *nerts.Player) bool { return p.CanCallNerts })
			},
		}},
	}
}

func (b *RuleBrain) placeHeld(s *nerts.GameState, held nerts.Card) Plan {
	slot, ok := findSlot(s, held)
	if !ok {
		return dropHeld(fmt.Sprintf("cannot play %s, dropping it", held))
	}
	target := b.jitter(s.Center[slot].Pos, s.Intent.Target)
	return Plan{
		Kind:   ActionPlayHeld,
		Reason: fmt.Sprintf("playing %s on %s", held, slotName(s.Center[slot])),
		Steps:  []Step{clickAt(target)},
	}
}

func dropHeld(reason string) Plan {
	return Plan{
		Kind:   ActionDiscardHeld,
		Reason: reason,
		Steps: []Step{{
			Intent: Intent{RightClick: true},
			Until: func(s *nerts.GameState) bool {
				return selfField(s, func(p *nerts.Player) bool { return p.Held.Empty() })
			},
		}},
	}
}

// jitter offsets base by a random amount, rerolling if the result equals the
// current target since the cursor would already be there.
func (b *RuleBrain) jitter(base, current nerts.Position) nerts.Position {
	for {
		p := base.Add(nerts.Pos(
			int16(jitterMinX+b.rng.Intn(jitterMaxX-jitterMinX)),
			int16(jitterMinY+b.rng.Intn(jitterMaxY-jitterMinY)),
		))
		if p != current {
			return p
		}
	}
}

// playableCandidates lists nerts top, table tops left to right, then the
// face-up draw card.
func playableCandidates(p *nerts.Player) []nerts.Card {
	var out []nerts.Card
	if top, ok := p.Nerts.Top(); ok {
		out = append(out, top)
	}
	for _, pile := range p.Table {
		if top, ok := pile.Top(); ok {
			out = append(out, top)
		}
	}
	if p.DrawUp != nil {
		out = append(out, *p.DrawUp)
	}
	return out
}

// findSlot returns the first center slot c may legally go on.
func findSlot(s *nerts.GameState, c nerts.Card) (int, bool) {
	if !c.Playable() {
		return 0, false
	}
	for i, slot := range s.Center {
		if slot.Card == nil {
			if c.CanStartFoundation() {
				return i, true
			}
			continue
		}
		if c.CanPlayOn(*slot.Card) {
			return i, true
		}
	}
	return 0, false
}

func slotName(slot nerts.CenterSlot) string {
	if slot.Card == nil {
		return "_"
	}
	return slot.Card.String()
}

func clickAt(target nerts.Position) Step {
	return Step{
		Intent: Intent{Move: true, Target: target, LeftClick: true},
		Until:  cursorAt(target),
	}
}

func cursorAt(target nerts.Position) Condition {
	return func(s *nerts.GameState) bool {
		return selfField(s, func(p *nerts.Player) bool { return p.Cursor == target })
	}
}

func phaseIs(phase nerts.Phase) Condition {
	return func(s *nerts.GameState) bool { return s.Phase == phase }
}

func hasActivePlayers(s *nerts.GameState) bool { return s.ActiveCount() > 0 }

func selfPlaying(s *nerts.GameState) bool {
	return selfField(s, func(p *nerts.Player) bool { return p.Playing })
}

func selfField(s *nerts.GameState, f func(*nerts.Player) bool) bool {
	p, ok := s.Self()
	return ok && f(p)
}
