package nerts

import "nerts-lite/protocol"

const (
	nearID  uint64 = 76561198064411451
	farID   uint64 = 76561199244422576
	thirdID uint64 = 76561198040136714
)

func cardMsg(x, y int16, data, flags uint8) protocol.CardMessage {
	return protocol.CardMessage{X: x, Y: y, Data: data, Flags: flags, Holder: protocol.HolderNone}
}

// fan lays out a nerts pile: n face-down cards stepping by step from x, then
// the face-up top card.
func fan(x, y int16, steps []int16, back, top, backFlags, topFlags uint8) []protocol.CardMessage {
	out := make([]protocol.CardMessage, 0, len(steps)+1)
	for _, dx := range steps {
		out = append(out, cardMsg(x+dx, y, back, backFlags))
	}
	last := steps[len(steps)-1]
	if last < 0 {
		last -= 13
	} else {
		last += 14
	}
	return append(out, cardMsg(x+last, y, top, topFlags))
}

var (
	fanSteps    = []int16{0, 13, 27, 40, 54, 67, 81, 94, 108, 121, 135, 148}
	farFanSteps = []int16{0, 14, 27, 41, 54, 68, 81, 95, 108, 122, 135, 149}
)

func negate(in []int16) []int16 {
	out := make([]int16, len(in))
	for i, v := range in {
		out[i] = -v
	}
	return out
}

// knownSnapshot is a three player board captured from a live game.
func knownSnapshot() *protocol.ServerMessage {
	players := []protocol.PlayerMessage{
		{PlayerID: nearID, OriginX: 554, OriginY: 238, IsPlaying: true, CardColor: 6, TableauCount: 5,
			NertsCards: 13, TotalScore: 18, HistoryPoints: []int8{18}, HistoryNertsed: []bool{true},
			CursorX: 3838, CursorY: 1086},
		{PlayerID: farID, OriginX: 1256, OriginY: 1382, Flipped: true, IsPlaying: true, CardColor: 8,
			TableauCount: 5, NertsCards: 13, TotalScore: 22, HistoryPoints: []int8{22},
			HistoryNertsed: []bool{false}, CursorX: 629, CursorY: 1432},
		{PlayerID: thirdID, OriginX: 1958, OriginY: 238, IsPlaying: true, CardColor: 3, TableauCount: 5,
			NertsCards: 13, HistoryPoints: []int8{0}, HistoryNertsed: []bool{false},
			CursorX: 1908, CursorY: 508},
	}

	var cards []protocol.CardMessage

	// near side
	dd := cardMsg(636, 378, 6, 0)
	dd.Height = 28
	cards = append(cards, dd)
	cards = append(cards, fan(638, 642, fanSteps, 6, 22, 4, 5)...)
	for i, data := range []uint8{3, 51, 10, 30, 48} {
		cards = append(cards, cardMsg(1014+160*int16(i), 642, data, 1))
	}

	// far side
	dd = cardMsg(2356, 1828, 8, 2)
	dd.Height = 28
	cards = append(cards, dd)
	cards = append(cards, fan(2354, 1564, negate(farFanSteps), 8, 3, 6, 7)...)
	for i, data := range []uint8{49, 23, 13, 38, 30} {
		cards = append(cards, cardMsg(1980-160*int16(i), 1564, data, 3))
	}

	// third seat
	dd = cardMsg(2040, 378, 3, 0)
	dd.Height = 28
	cards = append(cards, dd)
	cards = append(cards, fan(2042, 642, fanSteps, 3, 40, 4, 5)...)
	for i, data := range []uint8{45, 1, 48, 13, 29} {
		cards = append(cards, cardMsg(2418+160*int16(i), 642, data, 1))
	}

	outlines := make([]protocol.CardOutlineMessage, 12)
	for i := range outlines {
		outlines[i] = protocol.CardOutlineMessage{X: 967 + 160*int16(i), Y: 1102}
	}

	return &protocol.ServerMessage{
		Phase:        protocol.PhasePlay,
		Players:      players,
		Cards:        cards,
		CardOutlines: outlines,
	}
}
