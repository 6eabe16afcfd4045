package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit of the Italian 40-card deck
type Suit int

const (
	// NoSuit is the zero value; it stands for "no trump revealed yet".
	NoSuit Suit = iota
	Cups
	Coins
	Swords
	Clubs
)

// Suits lists the playable suits in compact-id order.
var Suits = [4]Suit{Cups, Coins, Swords, Clubs}

// String returns the wire name of a suit
func (s Suit) String() string {
	switch s {
	case Cups:
		return "cups"
	case Coins:
		return "coins"
	case Swords:
		return "swords"
	case Clubs:
		return "clubs"
	default:
		return ""
	}
}

// Valid reports whether s is one of the four playable suits.
func (s Suit) Valid() bool {
	return s >= Cups && s <= Clubs
}

// index is the position of the suit in Suits.
func (s Suit) index() int {
	return int(s) - 1
}

// ParseSuit converts a wire name into a Suit.
func ParseSuit(name string) (Suit, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cups":
		return Cups, nil
	case "coins":
		return Coins, nil
	case "swords":
		return Swords, nil
	case "clubs":
		return Clubs, nil
	default:
		return NoSuit, fmt.Errorf("invalid suit %q", name)
	}
}

// MarshalText encodes the suit as its wire name. NoSuit encodes as an empty string.
func (s Suit) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a wire name. An empty string decodes to NoSuit.
func (s *Suit) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = NoSuit
		return nil
	}
	parsed, err := ParseSuit(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Rank represents a card rank, 1 (ace) through 10 (king)
type Rank int

const (
	MinRank Rank = 1
	MaxRank Rank = 10
)

// Valid reports whether r is between MinRank and MaxRank.
func (r Rank) Valid() bool {
	return r >= MinRank && r <= MaxRank
}

// rankValues maps rank-1 to the card's point value.
var rankValues = [10]int{0, 0, 0, 0, 0, 2, 3, 4, 10, 11}

// Card represents a playing card. Cards compare by value.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the string representation of a card (e.g., "coins,7")
func (c Card) String() string {
	return fmt.Sprintf("%s,%d", c.Suit, c.Rank)
}

// Valid reports whether both suit and rank are in range.
func (c Card) Valid() bool {
	return c.Suit.Valid() && c.Rank.Valid()
}

// Value returns the point value of the card. Invalid cards are worth nothing.
func (c Card) Value() int {
	if !c.Rank.Valid() {
		return 0
	}
	return rankValues[c.Rank-1]
}

// ID returns the compact identifier suit_index*10 + (rank-1), in 0..39.
func (c Card) ID() int {
	return c.Suit.index()*10 + int(c.Rank-1)
}

// CardFromID is the inverse of Card.ID.
func CardFromID(id int) (Card, error) {
	if id < 0 || id >= Size {
		return Card{}, fmt.Errorf("card id %d out of range 0..%d", id, Size-1)
	}
	return Card{Suit: Suits[id/10], Rank: Rank(id%10) + 1}, nil
}

// HandValue sums the point values of cards.
func HandValue(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += c.Value()
	}
	return total
}
