package deck

import (
	rand "math/rand/v2"
)

const (
	// Size is the number of cards in the deck
	Size = 40
	// Hands is the number of hands dealt per game
	Hands = 5
	// HandSize is the number of cards in each dealt hand
	HandSize = Size / Hands
)

// Deck represents the 40-card Italian deck
type Deck struct {
	cards [Size]Card
	rng   *rand.Rand
}

// NewDeck creates a new deck in suit/rank order with explicit RNG
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}

	i := 0
	for _, suit := range Suits {
		for rank := MinRank; rank <= MaxRank; rank++ {
			d.cards[i] = NewCard(suit, rank)
			i++
		}
	}

	return d
}

// Cards returns a copy of the deck in its current order
func (d *Deck) Cards() []Card {
	out := make([]Card, Size)
	copy(out, d.cards[:])
	return out
}

// Shuffle shuffles the deck using Fisher-Yates
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// DealHands shuffles and splits the deck into five 8-card hands.
// Each hand is a fresh slice; callers may mutate them freely.
func (d *Deck) DealHands() [][]Card {
	d.Shuffle()

	hands := make([][]Card, Hands)
	for h := range Hands {
		hand := make([]Card, HandSize)
		copy(hand, d.cards[h*HandSize:(h+1)*HandSize])
		hands[h] = hand
	}
	return hands
}
