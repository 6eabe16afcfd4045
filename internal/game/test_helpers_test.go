package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lapster88/briscola/internal/deck"
	"github.com/lapster88/briscola/internal/randutil"
)

func card(t testing.TB, suit deck.Suit, rank deck.Rank) deck.Card {
	t.Helper()
	c := deck.NewCard(suit, rank)
	require.True(t, c.Valid())
	return c
}

// orderedHands deals the unshuffled deck in blocks of eight:
//
//	P0: cups 1-8
//	P1: cups 9-10, coins 1-6
//	P2: coins 7-10, swords 1-4
//	P3: swords 5-10, clubs 1-2
//	P4: clubs 3-10
func orderedHands() [NumPlayers][]deck.Card {
	var hands [NumPlayers][]deck.Card
	for id := range deck.Size {
		c, _ := deck.CardFromID(id)
		seat := id / deck.HandSize
		hands[seat] = append(hands[seat], c)
	}
	return hands
}

// biddingGame returns a game in the bid phase holding orderedHands.
func biddingGame(t testing.TB) *Game {
	t.Helper()
	hands := orderedHands()
	s := State{
		Phase:           PhaseBid,
		Bid:             openingBid,
		CallerID:        NoPlayer,
		PartnerID:       NoPlayer,
		CurrentLeaderID: NoPlayer,
		CurrentPlayerID: NoPlayer,
	}
	for i, h := range hands {
		s.Players = append(s.Players, PlayerState{ID: i, Hand: h, OriginalHand: h})
	}
	g, err := Restore(s, randutil.New(7))
	require.NoError(t, err)
	return g
}

// callerGame runs bidding so that caller wins with amount and calls rank.
func callerGame(t testing.TB, caller, amount int, rank deck.Rank) *Game {
	t.Helper()
	g := biddingGame(t)
	require.NoError(t, g.PlayerBid(caller, amount))
	for id := range NumPlayers {
		if id != caller {
			require.NoError(t, g.PlayerBid(id, PassBid))
		}
	}
	require.Equal(t, PhaseCallPartnerRank, g.Phase())
	require.NoError(t, g.CallPartnerRank(rank))
	return g
}

// playLeftmost plays the first card of the current player's hand.
func playLeftmost(t testing.TB, g *Game) *TrickResult {
	t.Helper()
	id := g.CurrentPlayerID()
	hand, err := g.Hand(id)
	require.NoError(t, err)
	require.NotEmpty(t, hand)
	res, err := g.PlayCard(id, hand[0])
	require.NoError(t, err)
	return res
}

// requireConserved checks that every card of the deck is in exactly one place.
func requireConserved(t testing.TB, g *Game) {
	t.Helper()
	seen := make(map[deck.Card]int, deck.Size)
	for id := range NumPlayers {
		p, err := g.Player(id)
		require.NoError(t, err)
		for _, c := range p.Hand {
			seen[c]++
		}
		for _, trick := range p.TricksWon {
			for _, play := range trick {
				seen[play.Card]++
			}
		}
	}
	for _, play := range g.CurrentTrick() {
		seen[play.Card]++
	}
	require.Len(t, seen, deck.Size)
	for c, n := range seen {
		require.Equal(t, 1, n, "card %s seen %d times", c, n)
	}
}
