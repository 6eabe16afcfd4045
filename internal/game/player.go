package game

import (
	"slices"

	"github.com/lapster88/briscola/internal/deck"
)

// Player represents a seat at the table
type Player struct {
	ID           int
	Hand         []deck.Card // Cards still held, in the player's chosen order
	OriginalHand []deck.Card // The dealt hand, never mutated after the deal
	Bid          int         // 0 before bidding, PassBid after passing
	Points       int
	TricksWon    [][]Play
}

// Passed returns true if the player's last bid was a pass
func (p *Player) Passed() bool {
	return p.Bid == PassBid
}

// Holds returns the index of card in the player's hand, or -1
func (p *Player) Holds(card deck.Card) int {
	return slices.Index(p.Hand, card)
}

func (p *Player) clone() Player {
	var tricks [][]Play
	for _, t := range p.TricksWon {
		tricks = append(tricks, clonePlays(t))
	}
	return Player{
		ID:           p.ID,
		Hand:         slices.Clone(p.Hand),
		OriginalHand: slices.Clone(p.OriginalHand),
		Bid:          p.Bid,
		Points:       p.Points,
		TricksWon:    tricks,
	}
}
