package protocol

import "fmt"

// Phase is the game phase tag carried first in every snapshot.
type Phase byte

const (
	PhaseLobby Phase = 0
	PhaseIntro Phase = 1
	PhasePlay  Phase = 2
	PhaseNerts Phase = 3
)

var PhaseDictionary = map[Phase]string{
	PhaseLobby: "lobby",
	PhaseIntro: "intro",
	PhasePlay:  "play",
	PhaseNerts: "nerts",
}

func (p Phase) String() string {
	if name, ok := PhaseDictionary[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", byte(p))
}

func (p Phase) Valid() bool { return p <= PhaseNerts }

func ParsePhase(b byte) (Phase, error) {
	p := Phase(b)
	if !p.Valid() {
		return p, fmt.Errorf("%w: %d", ErrInvalidPhase, b)
	}
	return p, nil
}

// HolderNone is the holder byte for a card nobody is dragging.
const HolderNone uint8 = 255

// ServerMessage is one decoded snapshot.
type ServerMessage struct {
	Phase                     Phase
	Players                   []PlayerMessage
	Cards                     []CardMessage
	CardOutlines              []CardOutlineMessage
	Notification              *NotificationMessage
	EmergencyShuffleCountdown *uint8
	ShuffleCount              uint8
}

type PlayerMessage struct {
	PlayerID                uint64
	OriginX                 int16
	OriginY                 int16
	Flipped                 bool
	IsPlaying               bool
	IsReady                 bool
	CanCallNerts            bool
	ShowDeckButton          bool
	Effects                 uint32
	CardColor               uint8
	TableauCount            uint8
	CalledNerts             bool
	NertsCards              uint8
	HoldingNertsCard        bool
	PointsCards             uint8
	TotalScore              int16
	HistoryPoints           []int8
	HistoryNertsed          []bool
	IgnoreDisableFoundation bool
	CursorX                 int16
	CursorY                 int16
}

type CardMessage struct {
	X      int16
	Y      int16
	Data   uint8
	Flags  uint8
	Height uint8
	Holder uint8
}

type CardOutlineMessage struct {
	X int16
	Y int16
}

type NotificationMessage struct {
	PlayerID uint64
	Type     uint8
}

// ClientMessage is the outbound intent.
type ClientMessage struct {
	X            int16
	Y            int16
	LeftClick    bool
	RightClick   bool
	MakeReady    bool
	Draw         bool
	CardBack     uint8
	CardColor    uint8
	SendKeyFrame bool
}

// DecodeServerMessage parses a reconstructed snapshot. The whole buffer must
// be consumed.
func DecodeServerMessage(data []byte) (*ServerMessage, error) {
	r := NewReader(data)
	m := readServerMessage(r)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, &FormatError{Offset: r.Offset(), Field: "snapshot", Err: ErrTrailingBytes}
	}
	return m, nil
}

func readServerMessage(r *Reader) *ServerMessage {
	m := &ServerMessage{}
	off := r.Offset()
	phase, err := ParsePhase(r.U8("phase"))
	if r.Err() != nil {
		return nil
	}
	if err != nil {
		r.err = &FormatError{Offset: off, Field: "phase", Err: err}
		return nil
	}
	m.Phase = phase
	m.Players = ReadSeq(r, "players", readPlayerMessage)
	m.Cards = ReadSeq(r, "cards", readCardMessage)
	m.CardOutlines = ReadSeq(r, "card_outlines", readCardOutlineMessage)
	m.Notification = ReadOpt(r, "notification", readNotificationMessage)
	m.EmergencyShuffleCountdown = ReadOpt(r, "emergency_shuffle_countdown", func(r *Reader) uint8 {
		return r.U8("emergency_shuffle_countdown")
	})
	m.ShuffleCount = r.U8("shuffle_count")
	return m
}

func (m *ServerMessage) Encode() []byte {
	w := NewWriter()
	m.WriteTo(w)
	return w.Bytes()
}

func (m *ServerMessage) WriteTo(w *Writer) {
	w.U8(uint8(m.Phase))
	WriteSeq(w, m.Players, writePlayerMessage)
	WriteSeq(w, m.Cards, writeCardMessage)
	WriteSeq(w, m.CardOutlines, writeCardOutlineMessage)
	WriteOpt(w, m.Notification, writeNotificationMessage)
	WriteOpt(w, m.EmergencyShuffleCountdown, func(w *Writer, v uint8) { w.U8(v) })
	w.U8(m.ShuffleCount)
}

func readPlayerMessage(r *Reader) PlayerMessage {
	return PlayerMessage{
		PlayerID:                r.U64("player.id"),
		OriginX:                 r.I16("player.origin_x"),
		OriginY:                 r.I16("player.origin_y"),
		Flipped:                 r.Bool("player.flipped"),
		IsPlaying:               r.Bool("player.is_playing"),
		IsReady:                 r.Bool("player.is_ready"),
		CanCallNerts:            r.Bool("player.can_call_nerts"),
		ShowDeckButton:          r.Bool("player.show_deck_button"),
		Effects:                 r.U32("player.effects"),
		CardColor:               r.U8("player.card_color"),
		TableauCount:            r.U8("player.tableau_count"),
		CalledNerts:             r.Bool("player.called_nerts"),
		NertsCards:              r.U8("player.nerts_cards"),
		HoldingNertsCard:        r.Bool("player.holding_nerts_card"),
		PointsCards:             r.U8("player.points_cards"),
		TotalScore:              r.I16("player.total_score"),
		HistoryPoints:           ReadSeq(r, "player.history_points", func(r *Reader) int8 { return r.I8("player.history_points") }),
		HistoryNertsed:          ReadSeq(r, "player.history_nertsed", func(r *Reader) bool { return r.Bool("player.history_nertsed") }),
		IgnoreDisableFoundation: r.Bool("player.ignore_disable_foundation"),
		CursorX:                 r.I16("player.cursor_x"),
		CursorY:                 r.I16("player.cursor_y"),
	}
}

func writePlayerMessage(w *Writer, p PlayerMessage) {
	w.U64(p.PlayerID)
	w.I16(p.OriginX)
	w.I16(p.OriginY)
	w.Bool(p.Flipped)
	w.Bool(p.IsPlaying)
	w.Bool(p.IsReady)
	w.Bool(p.CanCallNerts)
	w.Bool(p.ShowDeckButton)
	w.U32(p.Effects)
	w.U8(p.CardColor)
	w.U8(p.TableauCount)
	w.Bool(p.CalledNerts)
	w.U8(p.NertsCards)
	w.Bool(p.HoldingNertsCard)
	w.U8(p.PointsCards)
	w.I16(p.TotalScore)
	WriteSeq(w, p.HistoryPoints, (*Writer).I8)
	WriteSeq(w, p.HistoryNertsed, (*Writer).Bool)
	w.Bool(p.IgnoreDisableFoundation)
	w.I16(p.CursorX)
	w.I16(p.CursorY)
}

func readCardMessage(r *Reader) CardMessage {
	return CardMessage{
		X:      r.I16("card.x"),
		Y:      r.I16("card.y"),
		Data:   r.U8("card.data"),
		Flags:  r.U8("card.flags"),
		Height: r.U8("card.height"),
		Holder: r.U8("card.holder"),
	}
}

func writeCardMessage(w *Writer, c CardMessage) {
	w.I16(c.X)
	w.I16(c.Y)
	w.U8(c.Data)
	w.U8(c.Flags)
	w.U8(c.Height)
	w.U8(c.Holder)
}

func readCardOutlineMessage(r *Reader) CardOutlineMessage {
	return CardOutlineMessage{
		X: r.I16("card_outline.x"),
		Y: r.I16("card_outline.y"),
	}
}

func writeCardOutlineMessage(w *Writer, c CardOutlineMessage) {
	w.I16(c.X)
	w.I16(c.Y)
}

func readNotificationMessage(r *Reader) NotificationMessage {
	return NotificationMessage{
		PlayerID: r.U64("notification.player_id"),
		Type:     r.U8("notification.type"),
	}
}

func writeNotificationMessage(w *Writer, n NotificationMessage) {
	w.U64(n.PlayerID)
	w.U8(n.Type)
}

func (m ClientMessage) Encode() []byte {
	w := NewWriter()
	w.I16(m.X)
	w.I16(m.Y)
	w.Bool(m.LeftClick)
	w.Bool(m.RightClick)
	w.Bool(m.MakeReady)
	w.Bool(m.Draw)
	w.U8(m.CardBack)
	w.U8(m.CardColor)
	w.Bool(m.SendKeyFrame)
	return w.Bytes()
}

// DecodeClientMessage is used by the loopback peer and the tests.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	r := NewReader(data)
	m := ClientMessage{
		X:            r.I16("client.x"),
		Y:            r.I16("client.y"),
		LeftClick:    r.Bool("client.left_click"),
		RightClick:   r.Bool("client.right_click"),
		MakeReady:    r.Bool("client.make_ready"),
		Draw:         r.Bool("client.draw"),
		CardBack:     r.U8("client.card_back"),
		CardColor:    r.U8("client.card_color"),
		SendKeyFrame: r.Bool("client.send_key_frame"),
	}
	if err := r.Err(); err != nil {
		return ClientMessage{}, err
	}
	if r.Remaining() != 0 {
		return ClientMessage{}, &FormatError{Offset: r.Offset(), Field: "client", Err: ErrTrailingBytes}
	}
	return m, nil
}
