package server

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lapster88/briscola/internal/deck"
	"github.com/lapster88/briscola/internal/game"
	"github.com/lapster88/briscola/internal/randutil"
)

// testLogger creates a logger that discards output for tests
func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}

const testGameID = "g1"

func testConfig() Config {
	c := DefaultConfig()
	c.Seed = 7
	return c
}

// orderedGame returns a game in the bid phase with the unshuffled deck
// dealt in blocks of eight: P0 cups 1-8, P1 cups 9-10 and coins 1-6,
// P2 coins 7-10 and swords 1-4, P3 swords 5-10 and clubs 1-2, P4 clubs 3-10.
func orderedGame(t testing.TB) *game.Game {
	t.Helper()
	s := game.State{
		Phase:           game.PhaseBid,
		Bid:             game.MinBid - 1,
		CallerID:        game.NoPlayer,
		PartnerID:       game.NoPlayer,
		CurrentLeaderID: game.NoPlayer,
		CurrentPlayerID: game.NoPlayer,
	}
	for seat := range game.NumPlayers {
		var hand []deck.Card
		for id := seat * deck.HandSize; id < (seat+1)*deck.HandSize; id++ {
			c, err := deck.CardFromID(id)
			require.NoError(t, err)
			hand = append(hand, c)
		}
		s.Players = append(s.Players, game.PlayerState{ID: seat, Hand: hand, OriginalHand: hand})
	}
	g, err := game.Restore(s, randutil.New(7))
	require.NoError(t, err)
	return g
}
