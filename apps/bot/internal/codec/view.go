package codec

import (
	"time"

	"nerts-lite/nerts"
)

// View is the spectator-facing copy of a GameState. It is detached from the
// state so it can be encoded after the lock is released.
type View struct {
	Seq          uint64        `json:"seq"`
	ServerTsMs   int64         `json:"server_ts_ms"`
	SelfID       uint64        `json:"self_id,string"`
	Phase        string        `json:"phase"`
	ShuffleCount uint8         `json:"shuffle_count"`
	Countdown    *uint8        `json:"countdown,omitempty"`
	Players      []PlayerView  `json:"players"`
	Center       []SlotView    `json:"center"`
	Decision     *DecisionView `json:"decision,omitempty"`
}

type PlayerView struct {
	PlayerID    uint64       `json:"player_id,string"`
	Flipped     bool         `json:"flipped"`
	Playing     bool         `json:"playing"`
	Ready       bool         `json:"ready"`
	CalledNerts bool         `json:"called_nerts"`
	TotalScore  int16        `json:"total_score"`
	NertsLeft   int          `json:"nerts_left"`
	NertsTop    *CardView    `json:"nerts_top,omitempty"`
	DrawUp      *CardView    `json:"draw_up,omitempty"`
	Table       [][]CardView `json:"table"`
	Held        []CardView   `json:"held,omitempty"`
	CursorX     int16        `json:"cursor_x"`
	CursorY     int16        `json:"cursor_y"`
}

type CardView struct {
	Code   uint8  `json:"code"`
	Label  string `json:"label"`
	FaceUp bool   `json:"face_up"`
	X      int16  `json:"x"`
	Y      int16  `json:"y"`
}

type SlotView struct {
	X   int16     `json:"x"`
	Y   int16     `json:"y"`
	Top *CardView `json:"top,omitempty"`
}

type DecisionView struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// Snapshot copies what spectators see. Call it with the state lock held.
func Snapshot(s *nerts.GameState, seq uint64, decision *DecisionView) View {
	v := View{
		Seq:          seq,
		ServerTsMs:   time.Now().UnixMilli(),
		SelfID:       s.SelfID,
		Phase:        s.Phase.String(),
		ShuffleCount: s.ShuffleCount,
		Players:      make([]PlayerView, 0, len(s.Players)),
		Center:       make([]SlotView, 0, len(s.Center)),
		Decision:     decision,
	}
	if s.Countdown != nil {
		c := *s.Countdown
		v.Countdown = &c
	}

	for i := range s.Players {
		p := &s.Players[i]
		pv := PlayerView{
			PlayerID:    p.ID,
			Flipped:     p.Flipped,
			Playing:     p.Playing,
			Ready:       p.Ready,
			CalledNerts: p.CalledNerts,
			TotalScore:  p.TotalScore,
			NertsLeft:   p.Nerts.Len(),
			Table:       make([][]CardView, len(p.Table)),
			Held:        cardViews(p.Held),
			CursorX:     p.Cursor.X,
			CursorY:     p.Cursor.Y,
		}
		if top, ok := p.Nerts.Top(); ok {
			pv.NertsTop = cardView(top)
		}
		if p.DrawUp != nil {
			pv.DrawUp = cardView(*p.DrawUp)
		}
		for j, pile := range p.Table {
			pv.Table[j] = cardViews(pile)
		}
		v.Players = append(v.Players, pv)
	}

	for _, slot := range s.Center {
		sv := SlotView{X: slot.Pos.X, Y: slot.Pos.Y}
		if slot.Card != nil {
			sv.Top = cardView(*slot.Card)
		}
		v.Center = append(v.Center, sv)
	}
	return v
}

func cardView(c nerts.Card) *CardView {
	return &CardView{
		Code:   uint8(c.Face),
		Label:  c.String(),
		FaceUp: c.FaceUp,
		X:      c.Pos.X,
		Y:      c.Pos.Y,
	}
}

func cardViews(p nerts.Pile) []CardView {
	if len(p) == 0 {
		return nil
	}
	out := make([]CardView, len(p))
	for i, c := range p {
		out[i] = *cardView(c)
	}
	return out
}
