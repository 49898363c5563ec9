package card

import (
	"fmt"
	"strings"
)

// Card is the one-byte face code carried by card records.
//
// Encoding:
// - 0: unknown face (face-down card, empty slot)
// - suit by range: <13 Clubs, <26 Diamonds, <39 Hearts, otherwise Spades
// - rank: code % 13 (0:A, 1..8: 2..9, 9:T, 10:J, 11:Q, 12:K)
type Card byte

// Unknown is the code used when the face is not visible to us.
const Unknown Card = 0

// New builds the wire code for a suit and rank.
func New(s Suit, r Rank) Card {
	return Card(byte(s)*13 + byte(r))
}

// Known reports whether the face is visible.
func (c Card) Known() bool {
	return c != Unknown
}

// Suit returns the suit encoded in c. Unknown cards report Clubs.
func (c Card) Suit() Suit {
	switch {
	case c < 13:
		return Clubs
	case c < 26:
		return Diamonds
	case c < 39:
		return Hearts
	default:
		return Spades
	}
}

// Rank returns the rank encoded in c, Ace low.
func (c Card) Rank() Rank {
	return Rank(byte(c) % 13)
}

func (c Card) IsAce() bool {
	return c.Known() && c.Rank() == Ace
}

func (c Card) String() string {
	if !c.Known() {
		return "?"
	}
	return c.Rank().String() + c.Suit().String()
}

// Follows reports whether a may be placed on b in a center pile: same suit and
// exactly one rank above, Ace low with no wraparound.
func Follows(a, b Card) bool {
	if !a.Known() || !b.Known() {
		return false
	}
	return a.Suit() == b.Suit() && byte(a.Rank()) == byte(b.Rank())+1
}

// Parse converts a short string ("QH", "Td", "10s", "2c") to a Card.
func Parse(s string) (Card, error) {
	if len(s) < 2 {
		return Unknown, fmt.Errorf("invalid card string: %s", s)
	}

	var suit Suit
	switch s[len(s)-1] {
	case 'c', 'C':
		suit = Clubs
	case 'd', 'D':
		suit = Diamonds
	case 'h', 'H':
		suit = Hearts
	case 's', 'S':
		suit = Spades
	default:
		return Unknown, fmt.Errorf("invalid suit: %c", s[len(s)-1])
	}

	var rank Rank
	switch strings.ToUpper(s[:len(s)-1]) {
	case "A":
		rank = Ace
	case "2":
		rank = Two
	case "3":
		rank = Three
	case "4":
		rank = Four
	case "5":
		rank = Five
	case "6":
		rank = Six
	case "7":
		rank = Seven
	case "8":
		rank = Eight
	case "9":
		rank = Nine
	case "T", "10":
		rank = Ten
	case "J":
		rank = Jack
	case "Q":
		rank = Queen
	case "K":
		rank = King
	default:
		return Unknown, fmt.Errorf("invalid rank: %s", s[:len(s)-1])
	}

	c := New(suit, rank)
	if !c.Known() {
		return Unknown, fmt.Errorf("unrepresentable card: %s", s)
	}
	return c, nil
}
