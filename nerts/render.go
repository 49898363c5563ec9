package nerts

import (
	"fmt"
	"io"
	"strings"
)

const (
	ansiBgWhite = "\x1b[47m"
	ansiFgBlack = "\x1b[30m"
	ansiFgRed   = "\x1b[31m"
	ansiReset   = "\x1b[0m"
)

// Render draws the center row and one line per active player: id, nerts
// count, nerts top and table tops.
func Render(w io.Writer, s *GameState, color bool) error {
	var b strings.Builder
	b.WriteString("\n")

	slots := make([]string, len(s.Center))
	for i, slot := range s.Center {
		if slot.Card == nil {
			slots[i] = "__"
			continue
		}
		slots[i] = renderCard(*slot.Card, color)
	}
	fmt.Fprintf(&b, "%-20s %s\n\n", "Center:", strings.Join(slots, " "))

	for _, p := range s.Active() {
		nerts := "__"
		if top, ok := p.Nerts.Top(); ok {
			nerts = renderCard(top, color)
		}
		table := make([]string, len(p.Table))
		for i, pile := range p.Table {
			table[i] = "__"
			if top, ok := pile.Top(); ok {
				table[i] = renderCard(top, color)
			}
		}
		fmt.Fprintf(&b, "%-20d N: %2d %s  T: %s\n", p.ID, p.Nerts.Len(), nerts, strings.Join(table, " "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderCard(c Card, color bool) string {
	if !c.Playable() {
		if color {
			return ansiBgWhite + ansiFgRed + "▒▒" + ansiReset
		}
		return "##"
	}
	if !color {
		return c.Face.String()
	}
	fg := ansiFgBlack
	if c.Face.Suit().Red() {
		fg = ansiFgRed
	}
	return ansiBgWhite + ansiFgBlack + c.Face.Rank().String() + fg + c.Face.Suit().Symbol() + ansiReset
}
