package nerts

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nerts-lite/card"
	"nerts-lite/protocol"
)

func topFaces(t *testing.T, piles []Pile) []card.Card {
	t.Helper()
	out := make([]card.Card, len(piles))
	for i, p := range piles {
		top, ok := p.Top()
		require.True(t, ok, "pile %d empty", i)
		out[i] = top.Face
	}
	return out
}

func TestUpdateKnownSnapshot(t *testing.T) {
	s := NewGameState(nearID)
	require.NoError(t, s.Update(knownSnapshot()))

	assert.True(t, s.Initialized)
	assert.Equal(t, PhasePlay, s.Phase)
	assert.Equal(t, 3, s.ActiveCount())
	occupied, total := s.CenterOccupancy()
	assert.Equal(t, 0, occupied)
	assert.Equal(t, 12, total)

	self, ok := s.Self()
	require.True(t, ok)
	assert.Equal(t, nearID, self.ID)
	assert.Equal(t, int16(160), self.ExtraWidth())
	require.NotNil(t, self.DrawDown)
	assert.False(t, self.DrawDown.FaceUp)
	assert.Equal(t, uint8(28), self.DrawDown.Height)
	assert.Nil(t, self.DrawUp)

	require.Equal(t, 13, self.Nerts.Len())
	top, _ := self.Nerts.Top()
	assert.Equal(t, card.CardDiamondT, top.Face)
	assert.True(t, top.FaceUp)
	assert.True(t, top.Flags.InNertsPile())
	assert.Equal(t, []card.Card{3, 51, 10, 30, 48}, topFaces(t, self.Table))

	far := s.Active()[1]
	assert.Equal(t, farID, far.ID)
	require.NotNil(t, far.DrawDown)
	assert.True(t, far.DrawDown.Flags.Flipped())
	top, _ = far.Nerts.Top()
	assert.Equal(t, Pos(2192, 1564), top.Pos)
	assert.Equal(t, card.Card(3), top.Face)
	assert.Equal(t, []card.Card{49, 23, 13, 38, 30}, topFaces(t, far.Table))

	third := s.Active()[2]
	top, _ = third.Nerts.Top()
	assert.Equal(t, card.CardSpade2, top.Face)
	assert.Equal(t, []card.Card{45, 1, 48, 13, 29}, topFaces(t, third.Table))
}

// Three players with one nerts card each and an Ace sitting in one center
// slot, pushed through the whole decode pipeline.
func TestAceInCenterSlot(t *testing.T) {
	msg := knownSnapshot()
	msg.Cards = []protocol.CardMessage{
		cardMsg(638, 642, 22, 5),
		cardMsg(2354, 1564, 3, 7),
		cardMsg(2042, 642, 40, 5),
		cardMsg(1287, 1102, uint8(card.CardDiamondA), 1),
	}

	payload, err := protocol.EncodeKeyFrame(msg.Encode())
	require.NoError(t, err)
	dec := protocol.NewFrameDecoder()
	raw, err := dec.Decode(payload)
	require.NoError(t, err)
	decoded, err := protocol.DecodeServerMessage(raw)
	require.NoError(t, err)

	s := NewGameState(nearID)
	require.NoError(t, s.Update(decoded))

	occupied, total := s.CenterOccupancy()
	assert.Equal(t, 1, occupied)
	assert.Equal(t, 12, total)
	for i, slot := range s.Center {
		if i == 2 {
			require.NotNil(t, slot.Card)
			assert.Equal(t, card.CardDiamondA, slot.Card.Face)
			assert.True(t, slot.Card.CanStartFoundation())
			continue
		}
		assert.Nil(t, slot.Card, "slot %d", i)
	}
	for _, p := range s.Active() {
		assert.Equal(t, 1, p.Nerts.Len(), "player %d", p.ID)
	}
}

func TestCenterSortedByX(t *testing.T) {
	msg := knownSnapshot()
	outlines := msg.CardOutlines
	outlines[0], outlines[11] = outlines[11], outlines[0]

	s := NewGameState(nearID)
	require.NoError(t, s.Update(msg))
	for i := 1; i < len(s.Center); i++ {
		assert.Less(t, s.Center[i-1].Pos.X, s.Center[i].Pos.X)
	}
}

func TestPileOrderPutsTopFirst(t *testing.T) {
	msg := knownSnapshot()
	msg.Cards = append(msg.Cards,
		cardMsg(1014, 674, uint8(card.CardHeart7), 1),
		cardMsg(1980, 1596, uint8(card.CardClub9), 3),
	)
	held := cardMsg(300, 300, uint8(card.CardSpadeQ), 1)
	held.Holder = 1
	low := held
	low.Y = 332
	msg.Cards = append(msg.Cards, held, low)

	s := NewGameState(nearID)
	require.NoError(t, s.Update(msg))

	near := s.Active()[0]
	require.Equal(t, 2, near.Table[0].Len())
	assert.Equal(t, card.CardHeart7, near.Table[0][0].Face)

	far := s.Active()[1]
	require.Equal(t, 2, far.Table[0].Len())
	assert.Equal(t, int16(1564), far.Table[0][0].Pos.Y)
	require.Equal(t, 2, far.Held.Len())
	assert.Equal(t, int16(300), far.Held[0].Pos.Y)
}

func TestHeldCardGoesToHolder(t *testing.T) {
	msg := knownSnapshot()
	held := cardMsg(1500, 900, uint8(card.CardHeartQ), 1)
	held.Holder = 0
	msg.Cards = append(msg.Cards, held)

	s := NewGameState(nearID)
	require.NoError(t, s.Update(msg))
	self, _ := s.Self()
	require.Equal(t, 1, self.Held.Len())
	assert.Equal(t, card.CardHeartQ, self.Held[0].Face)
	assert.Equal(t, 0, self.Held[0].Holder)
}

func TestClassificationErrors(t *testing.T) {
	cases := []struct {
		name   string
		extra  func() protocol.CardMessage
		reason string
	}{
		{"unmatched", func() protocol.CardMessage { return cardMsg(10, 10, 5, 1) }, ReasonUnmatched},
		{"center_twice", func() protocol.CardMessage { return cardMsg(967, 1102, 14, 1) }, ReasonCenterOccupied},
		{"draw_down_twice", func() protocol.CardMessage { return cardMsg(636, 378, 6, 0) }, ReasonDrawDownOccupied},
		{"holder_out_of_range", func() protocol.CardMessage {
			c := cardMsg(0, 0, 5, 1)
			c.Holder = 3
			return c
		}, ReasonHolderOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := knownSnapshot()
			if tc.reason == ReasonCenterOccupied {
				msg.Cards = append(msg.Cards, cardMsg(967, 1102, 13, 1))
			}
			msg.Cards = append(msg.Cards, tc.extra())

			s := NewGameState(nearID)
			err := s.Update(msg)
			require.Error(t, err)
			var ce *ClassificationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.reason, ce.Reason)
			assert.Equal(t, len(msg.Cards)-1, ce.Index)
			assert.Len(t, ce.Anchors, 3)
			assert.True(t, IsFatal(err))
			assert.False(t, s.Initialized)
		})
	}
}

func TestUnmatchedErrorNamesAnchors(t *testing.T) {
	msg := knownSnapshot()
	msg.Cards = append(msg.Cards, cardMsg(10, 10, 5, 1))

	err := NewGameState(nearID).Update(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "card #")
	assert.Contains(t, err.Error(), "at (10,10)")
	assert.Contains(t, err.Error(), "down=(636,378)")
	assert.Contains(t, err.Error(), "nerts=(2354,1564)")
}

func TestSelfMissing(t *testing.T) {
	s := NewGameState(76561191240930714)
	err := s.Update(knownSnapshot())
	var ce *ClassificationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ReasonSelfMissing, ce.Reason)
	_, ok := s.Self()
	assert.False(t, ok)
}

func TestInvariantViolations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*protocol.ServerMessage)
		rule   string
	}{
		{"flip_alternation", func(m *protocol.ServerMessage) { m.Players[2].Flipped = true }, "flip_alternation"},
		{"origin_y", func(m *protocol.ServerMessage) { m.Players[0].OriginY = 240 }, "origin_y"},
		{"table_piles", func(m *protocol.ServerMessage) { m.Players[1].TableauCount = 4 }, "table_piles"},
		{"center_slots", func(m *protocol.ServerMessage) { m.CardOutlines = m.CardOutlines[:11] }, "center_slots"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := knownSnapshot()
			msg.Cards = nil
			tc.mutate(msg)

			err := NewGameState(nearID).Update(msg)
			var ie *InvariantError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tc.rule, ie.Rule)
			assert.True(t, IsFatal(err))
		})
	}
}

func TestExtraPilesAllowed(t *testing.T) {
	msg := knownSnapshot()
	msg.Cards = nil
	msg.Players[0].TableauCount = 6
	require.NoError(t, NewGameState(nearID).Update(msg))
}

func TestFailedUpdateKeepsState(t *testing.T) {
	s := NewGameState(nearID)
	require.NoError(t, s.Update(knownSnapshot()))
	before := *s
	beforeSelf, _ := s.Self()
	beforeNerts := beforeSelf.Nerts.Len()

	bad := knownSnapshot()
	bad.Cards = append(bad.Cards[:5], cardMsg(10, 10, 5, 1))
	require.Error(t, s.Update(bad))

	assert.Equal(t, before, *s)
	self, _ := s.Self()
	assert.Equal(t, beforeNerts, self.Nerts.Len())
}

func TestShortPayloadKeepsState(t *testing.T) {
	s := NewGameState(nearID)
	require.NoError(t, s.Update(knownSnapshot()))
	before := *s

	raw := knownSnapshot().Encode()
	_, err := protocol.DecodeServerMessage(raw[:len(raw)-1])
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, before, *s)
}

func TestNonPlayPhaseKeepsBoard(t *testing.T) {
	s := NewGameState(nearID)
	require.NoError(t, s.Update(knownSnapshot()))

	countdown := uint8(5)
	require.NoError(t, s.Update(&protocol.ServerMessage{
		Phase:                     protocol.PhaseNerts,
		Notification:              &protocol.NotificationMessage{PlayerID: farID, Type: 1},
		EmergencyShuffleCountdown: &countdown,
		ShuffleCount:              3,
	}))

	assert.Equal(t, PhaseNerts, s.Phase)
	assert.Equal(t, 3, s.ActiveCount())
	require.NotNil(t, s.Countdown)
	assert.Equal(t, uint8(5), *s.Countdown)
	require.NotNil(t, s.Notification)
	assert.Equal(t, farID, s.Notification.PlayerID)
	assert.Equal(t, uint8(3), s.ShuffleCount)
	assert.Equal(t, uint64(2), s.Ticks)
}

func TestNoActivePlayersSkipsClassification(t *testing.T) {
	msg := knownSnapshot()
	for i := range msg.Players {
		msg.Players[i].IsPlaying = false
	}
	msg.Cards = append(msg.Cards, cardMsg(10, 10, 5, 1))

	s := NewGameState(nearID)
	require.NoError(t, s.Update(msg))
	assert.Zero(t, s.ActiveCount())
	self, ok := s.Self()
	require.True(t, ok)
	assert.True(t, self.Nerts.Empty())
}

func TestTakeIntentClearsOneShotFlags(t *testing.T) {
	s := NewGameState(nearID)
	s.Intent = Intent{
		Target:       Pos(100, 200),
		LeftClick:    true,
		RightClick:   true,
		MakeReady:    true,
		Draw:         true,
		CardBack:     4,
		CardColor:    9,
		SendKeyFrame: true,
	}

	m := s.TakeIntent()
	assert.Equal(t, protocol.ClientMessage{
		X: 100, Y: 200, LeftClick: true, RightClick: true, MakeReady: true, Draw: true,
		CardBack: 4, CardColor: 9, SendKeyFrame: true,
	}, m)

	m = s.TakeIntent()
	assert.Equal(t, protocol.ClientMessage{X: 100, Y: 200, CardBack: 4, CardColor: 9}, m)
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(&protocol.DesyncError{Err: protocol.ErrLengthMismatch}))
	assert.True(t, IsFatal(&protocol.FormatError{Err: protocol.ErrShortRead}))
	assert.True(t, IsFatal(&InvariantError{Rule: "x"}))
	assert.False(t, IsFatal(errors.New("transport")))
}

func TestRender(t *testing.T) {
	s := NewGameState(nearID)
	msg := knownSnapshot()
	msg.Cards = append(msg.Cards, cardMsg(967, 1102, uint8(card.CardHeartA), 1))
	require.NoError(t, s.Update(msg))

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, s, false))
	out := buf.String()
	assert.Contains(t, out, "AH __ __")
	assert.Contains(t, out, "76561198064411451")
	assert.Contains(t, out, "N: 13 TD  T: 4C KS JC 5H TS")

	buf.Reset()
	require.NoError(t, Render(&buf, s, true))
	assert.Contains(t, buf.String(), "\x1b[47m")
}

func TestPositionWithinIsHalfOpen(t *testing.T) {
	box := Pos(10, 10)
	assert.True(t, Pos(10, 10).Within(box, Pos(5, 5)))
	assert.True(t, Pos(14, 14).Within(box, Pos(5, 5)))
	assert.False(t, Pos(15, 14).Within(box, Pos(5, 5)))
	assert.False(t, Pos(9, 12).Within(box, Pos(5, 5)))
	assert.InDelta(t, 5.0, Pos(0, 0).Distance(Pos(3, 4)), 1e-9)
}
