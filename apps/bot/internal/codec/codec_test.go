package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"nerts-lite/card"
	"nerts-lite/nerts"
)

type field struct {
	typ protowire.Type
	v   uint64
	b   []byte
}

func parse(t *testing.T, b []byte) map[protowire.Number][]field {
	t.Helper()
	out := make(map[protowire.Number][]field)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		require.GreaterOrEqual(t, n, 0, "bad tag")
		b = b[n:]
		f := field{typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.v, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			t.Fatalf("unexpected wire type %v", typ)
		}
		require.GreaterOrEqual(t, n, 0, "bad value for field %d", num)
		b = b[n:]
		out[num] = append(out[num], f)
	}
	return out
}

func testState() *nerts.GameState {
	s := nerts.NewGameState(1001)
	s.Phase = nerts.PhasePlay
	s.ShuffleCount = 2
	up := nerts.Card{Face: card.New(card.Hearts, card.Five), FaceUp: true, Pos: nerts.Pos(718, 378)}
	s.Players = []nerts.Player{{
		ID:         1001,
		Playing:    true,
		TotalScore: -3,
		Cursor:     nerts.Pos(-5, 900),
		Nerts: nerts.Pile{
			{Face: card.New(card.Diamonds, card.Ten), FaceUp: true, Pos: nerts.Pos(638, 642)},
			{Face: card.Unknown, Pos: nerts.Pos(636, 642)},
		},
		DrawUp: &up,
		Table: []nerts.Pile{
			{{Face: card.New(card.Spades, card.King), FaceUp: true, Pos: nerts.Pos(1014, 642)}},
			{},
		},
	}}
	ace := nerts.Card{Face: card.New(card.Hearts, card.Ace), FaceUp: true, Pos: nerts.Pos(967, 1102)}
	s.Center = []nerts.CenterSlot{{Pos: nerts.Pos(967, 1102), Card: &ace}, {Pos: nerts.Pos(1127, 1102)}}
	return s
}

func TestSnapshotCopiesState(t *testing.T) {
	s := testState()
	v := Snapshot(s, 7, &DecisionView{Kind: "draw", Reason: "drawing"})

	assert.Equal(t, uint64(7), v.Seq)
	assert.Equal(t, "play", v.Phase)
	require.Len(t, v.Players, 1)
	p := v.Players[0]
	assert.Equal(t, 2, p.NertsLeft)
	require.NotNil(t, p.NertsTop)
	assert.Equal(t, "TD", p.NertsTop.Label)
	require.NotNil(t, p.DrawUp)
	assert.Equal(t, "5H", p.DrawUp.Label)
	require.Len(t, p.Table, 2)
	assert.Equal(t, "KS", p.Table[0][0].Label)
	assert.Empty(t, p.Table[1])
	require.Len(t, v.Center, 2)
	assert.Equal(t, "AH", v.Center[0].Top.Label)
	assert.Nil(t, v.Center[1].Top)

	// mutating the state afterwards must not leak into the view
	s.Players[0].Table[0][0].Pos = nerts.Pos(0, 0)
	assert.Equal(t, int16(1014), p.Table[0][0].X)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"self_id":"1001"`)
}

func TestEncodeFrameParsesBack(t *testing.T) {
	s := testState()
	var countdown uint8
	s.Countdown = &countdown
	v := Snapshot(s, 7, &DecisionView{Kind: "draw", Reason: "drawing"})
	frame := parse(t, EncodeFrame(v))

	assert.Equal(t, uint64(7), frame[frameSeq][0].v)
	assert.Equal(t, "play", string(frame[framePhase][0].b))
	assert.Equal(t, uint64(2), frame[frameShuffleCount][0].v)
	require.Len(t, frame[frameCountdown], 1, "zero countdown is still present")
	assert.Equal(t, uint64(0), frame[frameCountdown][0].v)
	assert.Equal(t, uint64(1001), frame[frameSelfID][0].v)
	require.Len(t, frame[frameCenter], 2)

	decision := parse(t, frame[frameDecision][0].b)
	assert.Equal(t, "draw", string(decision[decisionKind][0].b))
	assert.Equal(t, "drawing", string(decision[decisionReason][0].b))

	require.Len(t, frame[framePlayers], 1)
	player := parse(t, frame[framePlayers][0].b)
	assert.Equal(t, uint64(1001), player[playerID][0].v)
	assert.Equal(t, uint64(1), player[playerPlaying][0].v)
	assert.Empty(t, player[playerFlipped])
	assert.Equal(t, int64(-3), protowire.DecodeZigZag(player[playerTotalScore][0].v))
	assert.Equal(t, int64(-5), protowire.DecodeZigZag(player[playerCursorX][0].v))
	require.Len(t, player[playerTable], 2, "empty piles keep their slot")
	assert.Empty(t, player[playerTable][1].b)

	pile := parse(t, player[playerTable][0].b)
	require.Len(t, pile[pileCards], 1)
	king := parse(t, pile[pileCards][0].b)
	assert.Equal(t, uint64(card.New(card.Spades, card.King)), king[cardCode][0].v)
	assert.Equal(t, uint64(1), king[cardFaceUp][0].v)
	assert.Equal(t, int64(1014), protowire.DecodeZigZag(king[cardX][0].v))

	slot := parse(t, frame[frameCenter][0].b)
	top := parse(t, slot[slotTop][0].b)
	assert.Equal(t, uint64(card.New(card.Hearts, card.Ace)), top[cardCode][0].v)
}

func TestEncodeFrameEmptyLobby(t *testing.T) {
	s := nerts.NewGameState(5)
	frame := parse(t, EncodeFrame(Snapshot(s, 1, nil)))
	assert.Equal(t, "lobby", string(frame[framePhase][0].b))
	assert.Empty(t, frame[framePlayers])
	assert.Empty(t, frame[frameDecision])
	assert.Empty(t, frame[frameCountdown])
}
