package replay

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nerts-lite/card"
	"nerts-lite/protocol"
)

const (
	selfID   uint64 = 1001
	serverID uint64 = 9000
)

func board(cursorX int16, extra ...protocol.CardMessage) *protocol.ServerMessage {
	outlines := make([]protocol.CardOutlineMessage, 8)
	for i := range outlines {
		outlines[i] = protocol.CardOutlineMessage{X: 967 + 160*int16(i), Y: 1102}
	}
	cards := make([]protocol.CardMessage, 0, 6+len(extra))
	for i := int16(0); i < 6; i++ {
		cards = append(cards, protocol.CardMessage{X: 1014 + 160*i, Y: 642, Data: uint8(card.CardClubK), Flags: 1, Holder: protocol.HolderNone})
	}
	return &protocol.ServerMessage{
		Phase: protocol.PhasePlay,
		Players: []protocol.PlayerMessage{
			{PlayerID: selfID, OriginX: 554, OriginY: 238, IsPlaying: true, TableauCount: 6, CursorX: cursorX, CursorY: 5},
			{PlayerID: 1002, OriginX: 2000, OriginY: 1382, Flipped: true, IsPlaying: true, TableauCount: 6},
		},
		Cards:        append(cards, extra...),
		CardOutlines: outlines,
	}
}

func sampleStream() []*protocol.ServerMessage {
	ace := protocol.CardMessage{X: 638, Y: 642, Data: uint8(card.CardHeartA), Flags: 1, Holder: protocol.HolderNone}
	return []*protocol.ServerMessage{
		{Phase: protocol.PhaseLobby},
		board(10),
		board(20),
		board(30, ace),
		board(40, ace),
	}
}

func TestGenerateTapeUsesDeltas(t *testing.T) {
	tape, err := GenerateTape(selfID, serverID, 1, sampleStream())
	require.NoError(t, err)
	require.Len(t, tape.Events, 5)

	kinds := make([]byte, 0, len(tape.Events))
	for _, e := range tape.Events {
		payload, err := decodePayload(e)
		require.NoError(t, err)
		raw, err := protocol.Decompress(payload)
		require.NoError(t, err)
		kinds = append(kinds, raw[0])
	}
	assert.Equal(t, []byte{protocol.FrameKey, protocol.FrameKey, protocol.FrameDelta, protocol.FrameKey, protocol.FrameDelta}, kinds)
}

func TestRunIsDeterministic(t *testing.T) {
	tape, err := GenerateTape(selfID, serverID, 42, sampleStream())
	require.NoError(t, err)

	a, err := Run(tape, nil)
	require.NoError(t, err)
	b, err := Run(tape, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	require.Len(t, a.Steps, 5)
	assert.Equal(t, "wait_players", a.Steps[0].Decision.Kind)
	assert.Equal(t, "draw", a.Steps[1].Decision.Kind)
	assert.Equal(t, "pick_up", a.Steps[3].Decision.Kind)
	assert.Equal(t, 2, a.Steps[3].Active)
}

func TestRunSkipsDesyncAndForeignPeers(t *testing.T) {
	tape, err := GenerateTape(selfID, serverID, 1, sampleStream())
	require.NoError(t, err)
	// Drop the key frame the first delta depends on.
	tape.Events = append(tape.Events[:1], tape.Events[2:]...)
	tape.Events = append(tape.Events, TapeEvent{Seq: 99, Peer: 7, PayloadB64: tape.Events[0].PayloadB64})

	res, err := Run(tape, nil)
	require.NoError(t, err)
	require.Len(t, res.Steps, 5)
	assert.Equal(t, "desync", res.Steps[1].Skipped)
	assert.Nil(t, res.Steps[1].Decision)
	assert.Equal(t, "foreign_peer", res.Steps[4].Skipped)
}

func TestRunReturnsReplayErrorOnBadBoard(t *testing.T) {
	stray := protocol.CardMessage{X: 10, Y: 10, Data: 5, Flags: 1, Holder: protocol.HolderNone}
	msgs := []*protocol.ServerMessage{board(10), board(10, stray)}
	tape, err := GenerateTape(selfID, serverID, 1, msgs)
	require.NoError(t, err)

	res, err := Run(tape, nil)
	require.Error(t, err)
	replayErr, ok := err.(*ReplayError)
	require.True(t, ok, "expected ReplayError, got %T", err)
	assert.Equal(t, int32(1), replayErr.StepIndex)
	assert.Equal(t, "classification", replayErr.Reason)
	require.NotNil(t, replayErr.Expected)
	assert.Equal(t, "play", replayErr.Expected.Phase)
	assert.Len(t, res.Steps, 1)
}

func TestTapeJSONRoundTrip(t *testing.T) {
	tape, err := GenerateTape(selfID, serverID, 3, sampleStream())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTape(&buf, tape))
	got, err := ReadTape(&buf)
	require.NoError(t, err)
	assert.Equal(t, tape, got)

	wire := ToWireTape(tape)
	assert.Equal(t, "9000", wire.ServerID)
	assert.Len(t, wire.Events, len(tape.Events))
}

func TestReadTapeRejectsVersion(t *testing.T) {
	_, err := ReadTape(bytes.NewBufferString(`{"tape_version": 7, "events": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported tape version")
}
