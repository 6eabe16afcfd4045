package game

import (
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/samber/lo"

	"github.com/lapster88/briscola/internal/deck"
)

// PlayerState is the serializable form of a Player
type PlayerState struct {
	ID           int         `json:"player_id"`
	Hand         []deck.Card `json:"hand"`
	OriginalHand []deck.Card `json:"original_hand"`
	Bid          int         `json:"bid"`
	Points       int         `json:"points"`
	TricksWon    [][]Play    `json:"tricks_won,omitempty"`
}

// State is the full serializable engine state. Player references use
// NoPlayer when unset.
type State struct {
	Phase            Phase         `json:"phase"`
	Bid              int           `json:"bid"`
	CallerID         int           `json:"caller_id"`
	PartnerID        int           `json:"partner_id"`
	PartnerRank      deck.Rank     `json:"partner_rank"`
	TrumpSuit        deck.Suit     `json:"trump_suit"`
	CurrentTrick     []Play        `json:"trick"`
	CurrentLeaderID  int           `json:"current_leader_id"`
	CurrentPlayerID  int           `json:"current_player_id"`
	TricksPlayed     int           `json:"tricks_played"`
	Redeals          int           `json:"redeals,omitempty"`
	MinimumHandValue int           `json:"minimum_hand_value"`
	LastTrick        *TrickResult  `json:"last_trick,omitempty"`
	Players          []PlayerState `json:"players"`
}

// Export captures a deep copy of the engine state
func (g *Game) Export() State {
	s := State{
		Phase:            g.phase,
		Bid:              g.bid,
		CallerID:         g.CallerID(),
		PartnerID:        g.PartnerID(),
		PartnerRank:      g.partnerRank,
		TrumpSuit:        g.partnerSuit,
		CurrentTrick:     clonePlays(g.currentTrick),
		CurrentLeaderID:  g.currentLeaderID,
		CurrentPlayerID:  g.currentPlayerID,
		TricksPlayed:     g.tricksPlayed,
		Redeals:          g.redeals,
		MinimumHandValue: g.minimumHandValue,
		Players: lo.Map(g.players[:], func(p *Player, _ int) PlayerState {
			c := p.clone()
			return PlayerState{
				ID:           c.ID,
				Hand:         c.Hand,
				OriginalHand: c.OriginalHand,
				Bid:          c.Bid,
				Points:       c.Points,
				TricksWon:    c.TricksWon,
			}
		}),
	}
	if t, ok := g.LastTrick(); ok {
		s.LastTrick = &t
	}
	return s
}

// Restore rebuilds a game from exported state. Players missing from the
// state start empty; rng is used for any later redeal.
func Restore(s State, rng *rand.Rand) (*Game, error) {
	if s.Phase < PhaseIdle || s.Phase > PhaseFinished {
		return nil, fmt.Errorf("restore: unknown phase %d", int(s.Phase))
	}
	for _, id := range []int{s.CallerID, s.PartnerID, s.CurrentLeaderID, s.CurrentPlayerID} {
		if id != NoPlayer {
			if err := validatePlayerID(id); err != nil {
				return nil, fmt.Errorf("restore: %w", err)
			}
		}
	}
	if s.PartnerRank != 0 && !s.PartnerRank.Valid() {
		return nil, fmt.Errorf("restore: invalid partner rank %d", s.PartnerRank)
	}
	if len(s.CurrentTrick) >= NumPlayers && s.Phase != PhaseCallPartnerSuit {
		return nil, fmt.Errorf("restore: trick of %d plays in phase %s", len(s.CurrentTrick), s.Phase)
	}

	g := New(rng, WithMinimumHandValue(s.MinimumHandValue))
	if s.MinimumHandValue == 0 {
		g.minimumHandValue = DefaultMinimumHandValue
	}
	for _, ps := range s.Players {
		if err := validatePlayerID(ps.ID); err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
		p := g.players[ps.ID]
		p.Hand = slices.Clone(ps.Hand)
		p.OriginalHand = slices.Clone(ps.OriginalHand)
		p.Bid = ps.Bid
		p.Points = ps.Points
		for _, t := range ps.TricksWon {
			p.TricksWon = append(p.TricksWon, clonePlays(t))
		}
	}

	g.phase = s.Phase
	if s.Bid != 0 {
		g.bid = s.Bid
	}
	if s.CallerID != NoPlayer {
		g.bidWinner = g.players[s.CallerID]
	}
	if s.PartnerID != NoPlayer {
		g.partner = g.players[s.PartnerID]
	}
	g.partnerRank = s.PartnerRank
	g.partnerSuit = s.TrumpSuit
	g.currentTrick = clonePlays(s.CurrentTrick)
	g.currentLeaderID = s.CurrentLeaderID
	g.currentPlayerID = s.CurrentPlayerID
	g.tricksPlayed = s.TricksPlayed
	g.redeals = s.Redeals
	if s.LastTrick != nil {
		t := *s.LastTrick
		t.Plays = clonePlays(t.Plays)
		g.lastTrick = &t
	}
	if g.phase == PhaseFinished {
		res := g.computeResult()
		g.result = &res
	}
	return g, nil
}
