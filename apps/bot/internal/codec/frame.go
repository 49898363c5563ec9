package codec

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// SpectatorFrame field numbers, see apps/bot/proto/spectator.proto.
const (
	frameSeq          protowire.Number = 1
	frameServerTs     protowire.Number = 2
	framePhase        protowire.Number = 3
	framePlayers      protowire.Number = 4
	frameCenter       protowire.Number = 5
	frameDecision     protowire.Number = 6
	frameShuffleCount protowire.Number = 7
	frameCountdown    protowire.Number = 8
	frameSelfID       protowire.Number = 9

	playerID          protowire.Number = 1
	playerFlipped     protowire.Number = 2
	playerPlaying     protowire.Number = 3
	playerReady       protowire.Number = 4
	playerCalledNerts protowire.Number = 5
	playerTotalScore  protowire.Number = 6
	playerNertsLeft   protowire.Number = 7
	playerNertsTop    protowire.Number = 8
	playerDrawUp      protowire.Number = 9
	playerTable       protowire.Number = 10
	playerHeld        protowire.Number = 11
	playerCursorX     protowire.Number = 12
	playerCursorY     protowire.Number = 13

	cardCode   protowire.Number = 1
	cardFaceUp protowire.Number = 2
	cardX      protowire.Number = 3
	cardY      protowire.Number = 4

	pileCards protowire.Number = 1

	slotX   protowire.Number = 1
	slotY   protowire.Number = 2
	slotTop protowire.Number = 3

	decisionKind   protowire.Number = 1
	decisionReason protowire.Number = 2
)

// EncodeFrame serializes a View as a SpectatorFrame. Zero scalars are
// omitted as proto3 does.
func EncodeFrame(v View) []byte {
	var b []byte
	b = appendUvarint(b, frameSeq, v.Seq)
	b = appendVarint(b, frameServerTs, v.ServerTsMs)
	b = appendString(b, framePhase, v.Phase)
	for _, p := range v.Players {
		b = appendMessage(b, framePlayers, encodePlayer(p))
	}
	for _, s := range v.Center {
		b = appendMessage(b, frameCenter, encodeSlot(s))
	}
	if v.Decision != nil {
		var d []byte
		d = appendString(d, decisionKind, v.Decision.Kind)
		d = appendString(d, decisionReason, v.Decision.Reason)
		b = appendMessage(b, frameDecision, d)
	}
	b = appendUvarint(b, frameShuffleCount, uint64(v.ShuffleCount))
	if v.Countdown != nil {
		// explicit presence: zero is still written
		b = protowire.AppendTag(b, frameCountdown, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*v.Countdown))
	}
	if v.SelfID != 0 {
		b = protowire.AppendTag(b, frameSelfID, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, v.SelfID)
	}
	return b
}

func encodePlayer(p PlayerView) []byte {
	var b []byte
	b = protowire.AppendTag(b, playerID, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, p.PlayerID)
	b = appendBool(b, playerFlipped, p.Flipped)
	b = appendBool(b, playerPlaying, p.Playing)
	b = appendBool(b, playerReady, p.Ready)
	b = appendBool(b, playerCalledNerts, p.CalledNerts)
	b = appendSint(b, playerTotalScore, int64(p.TotalScore))
	b = appendUvarint(b, playerNertsLeft, uint64(p.NertsLeft))
	if p.NertsTop != nil {
		b = appendMessage(b, playerNertsTop, encodeCard(*p.NertsTop))
	}
	if p.DrawUp != nil {
		b = appendMessage(b, playerDrawUp, encodeCard(*p.DrawUp))
	}
	for _, pile := range p.Table {
		var pb []byte
		for _, c := range pile {
			pb = appendMessage(pb, pileCards, encodeCard(c))
		}
		b = appendMessage(b, playerTable, pb)
	}
	for _, c := range p.Held {
		b = appendMessage(b, playerHeld, encodeCard(c))
	}
	b = appendSint(b, playerCursorX, int64(p.CursorX))
	b = appendSint(b, playerCursorY, int64(p.CursorY))
	return b
}

func encodeSlot(s SlotView) []byte {
	var b []byte
	b = appendSint(b, slotX, int64(s.X))
	b = appendSint(b, slotY, int64(s.Y))
	if s.Top != nil {
		b = appendMessage(b, slotTop, encodeCard(*s.Top))
	}
	return b
}

func encodeCard(c CardView) []byte {
	var b []byte
	b = appendUvarint(b, cardCode, uint64(c.Code))
	b = appendBool(b, cardFaceUp, c.FaceUp)
	b = appendSint(b, cardX, int64(c.X))
	b = appendSint(b, cardY, int64(c.Y))
	return b
}

func appendUvarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendVarint(b []byte, num protowire.Number, v int64) []byte {
	return appendUvarint(b, num, uint64(v))
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// appendMessage always writes the field, so an all-default sub-message (an
// empty pile) still counts as present.
func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}
