package game

import (
	"github.com/samber/lo"

	"github.com/lapster88/briscola/internal/deck"
)

// Play is one card laid into a trick
type Play struct {
	Card     deck.Card `json:"card"`
	PlayerID int       `json:"player_id"`
}

// TrickResult describes a resolved trick
type TrickResult struct {
	Number int    `json:"number"`
	Winner Play   `json:"winner"`
	Points int    `json:"points"`
	Plays  []Play `json:"plays"`
}

// ResolveTrick returns the winning play. The first play leads; a trump card
// beats any non-trump, and within the led suit or within trump the higher
// rank wins. Cards of any other suit never win. With trump == deck.NoSuit
// the highest card of the led suit wins.
func ResolveTrick(plays []Play, trump deck.Suit) (Play, error) {
	if len(plays) == 0 {
		return Play{}, ErrEmptyTrick
	}

	winner := plays[0]
	for _, play := range plays[1:] {
		card := play.Card
		switch {
		case trump.Valid() && card.Suit == trump:
			if winner.Card.Suit != trump || card.Rank > winner.Card.Rank {
				winner = play
			}
		case card.Suit == winner.Card.Suit:
			if card.Rank > winner.Card.Rank {
				winner = play
			}
		}
	}
	return winner, nil
}

// TrickPoints sums the card values of a trick
func TrickPoints(plays []Play) int {
	return lo.SumBy(plays, func(p Play) int { return p.Card.Value() })
}

func clonePlays(plays []Play) []Play {
	if plays == nil {
		return nil
	}
	out := make([]Play, len(plays))
	copy(out, plays)
	return out
}
