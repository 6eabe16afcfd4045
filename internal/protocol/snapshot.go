package protocol

import (
	"encoding/json"
	"fmt"
	rand "math/rand/v2"

	"github.com/samber/lo"

	"github.com/lapster88/briscola/internal/deck"
	"github.com/lapster88/briscola/internal/game"
)

// Seat describes a player at the table
type Seat struct {
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
	Seat     int    `json:"seat"`
}

// BidInfo is one player's last bid (0 none, -1 pass)
type BidInfo struct {
	PlayerID int `json:"player_id"`
	Bid      int `json:"bid"`
}

// TrickSummary is a trick already won
type TrickSummary struct {
	WinnerID int         `json:"winner_id"`
	Points   int         `json:"points"`
	Plays    []game.Play `json:"plays"`
}

// Snapshot is the sync payload and the persisted game state. Engine holds
// the full engine state when persisted; it is never sent to clients.
type Snapshot struct {
	MessageType     string         `json:"message_type"`
	GameID          string         `json:"game_id"`
	Phase           game.Phase     `json:"phase"`
	Players         []Seat         `json:"players"`
	Scores          []Score        `json:"scores"`
	CurrentPlayerID *int           `json:"current_player_id"`
	CurrentLeaderID *int           `json:"current_leader_id"`
	Trick           []game.Play    `json:"trick"`
	TrickHistory    []TrickSummary `json:"trick_history"`
	CallerID        *int           `json:"caller_id"`
	PartnerID       *int           `json:"partner_id"`
	PartnerRank     *int           `json:"partner_rank"`
	TrumpSuit       *string        `json:"trump_suit"`
	Bids            []BidInfo      `json:"bids"`
	HighBid         int            `json:"high_bid"`
	Hand            []HandCard     `json:"hand,omitempty"`
	Engine          *game.State    `json:"engine,omitempty"`
}

func (Snapshot) Type() string { return TypeSync }

// BuildSnapshot projects the engine into the public schema. The hand is
// included only for a non-observer with a valid seat.
func BuildSnapshot(gameID string, g *game.Game, playerID *int, role Role) Snapshot {
	state := g.Export()

	s := Snapshot{
		MessageType:     TypeSync,
		GameID:          gameID,
		Phase:           state.Phase,
		CurrentPlayerID: optionalID(state.CurrentPlayerID),
		CurrentLeaderID: optionalID(state.CurrentLeaderID),
		Trick:           lo.Ternary(state.CurrentTrick == nil, []game.Play{}, state.CurrentTrick),
		TrickHistory:    []TrickSummary{},
		CallerID:        optionalID(state.CallerID),
		PartnerID:       optionalID(state.PartnerID),
		HighBid:         state.Bid,
	}
	if state.PartnerRank != 0 {
		s.PartnerRank = lo.ToPtr(int(state.PartnerRank))
	}
	if state.TrumpSuit.Valid() {
		s.TrumpSuit = lo.ToPtr(state.TrumpSuit.String())
	}

	s.Players = lo.Map(state.Players, func(p game.PlayerState, _ int) Seat {
		return Seat{PlayerID: p.ID, Name: fmt.Sprintf("Player %d", p.ID), Seat: p.ID}
	})
	s.Scores = lo.Map(state.Players, func(p game.PlayerState, _ int) Score {
		return Score{PlayerID: p.ID, Points: p.Points}
	})
	s.Bids = lo.Map(state.Players, func(p game.PlayerState, _ int) BidInfo {
		return BidInfo{PlayerID: p.ID, Bid: p.Bid}
	})
	for _, p := range state.Players {
		for _, plays := range p.TricksWon {
			s.TrickHistory = append(s.TrickHistory, TrickSummary{
				WinnerID: p.ID,
				Points:   game.TrickPoints(plays),
				Plays:    plays,
			})
		}
	}

	if role != RoleObserver && playerID != nil && *playerID >= 0 && *playerID < game.NumPlayers {
		s.Hand = HandCards(state.Players[*playerID].Hand)
	}
	return s
}

// PersistedSnapshot is the public snapshot plus the engine state
func PersistedSnapshot(gameID string, g *game.Game) Snapshot {
	s := BuildSnapshot(gameID, g, nil, "")
	state := g.Export()
	s.Engine = &state
	return s
}

// ParseSnapshot decodes a stored snapshot
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

// Hydrate rebuilds an engine. With the engine state present play resumes
// exactly; otherwise only phase, turn, points, bids, caller, partner,
// partner rank and trump are restored and hands start empty.
func (s *Snapshot) Hydrate(rng *rand.Rand) (*game.Game, error) {
	if s.Engine != nil {
		return game.Restore(*s.Engine, rng)
	}

	state := game.State{
		Phase:           s.Phase,
		Bid:             s.HighBid,
		CallerID:        idOrNone(s.CallerID),
		PartnerID:       idOrNone(s.PartnerID),
		CurrentLeaderID: idOrNone(s.CurrentLeaderID),
		CurrentPlayerID: idOrNone(s.CurrentPlayerID),
	}
	if state.Bid == 0 {
		state.Bid = game.MinBid - 1
	}
	if s.PartnerRank != nil {
		state.PartnerRank = deck.Rank(*s.PartnerRank)
	}
	if s.TrumpSuit != nil && *s.TrumpSuit != "" {
		suit, err := deck.ParseSuit(*s.TrumpSuit)
		if err != nil {
			return nil, fmt.Errorf("hydrate: %w", err)
		}
		state.TrumpSuit = suit
	}

	players := make(map[int]*game.PlayerState, game.NumPlayers)
	player := func(id int) *game.PlayerState {
		if p, ok := players[id]; ok {
			return p
		}
		p := &game.PlayerState{ID: id}
		players[id] = p
		return p
	}
	for _, sc := range s.Scores {
		player(sc.PlayerID).Points = sc.Points
	}
	for _, b := range s.Bids {
		player(b.PlayerID).Bid = b.Bid
	}
	for id := range game.NumPlayers {
		if p, ok := players[id]; ok {
			state.Players = append(state.Players, *p)
			delete(players, id)
		}
	}
	for id := range players {
		return nil, fmt.Errorf("hydrate: player id %d out of range", id)
	}

	return game.Restore(state, rng)
}

func optionalID(id int) *int {
	if id == game.NoPlayer {
		return nil
	}
	return &id
}

func idOrNone(id *int) int {
	if id == nil {
		return game.NoPlayer
	}
	return *id
}
