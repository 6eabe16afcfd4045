package game

import (
	rand "math/rand/v2"
	"slices"

	"github.com/lapster88/briscola/internal/deck"
)

const (
	// NumPlayers is the fixed table size
	NumPlayers = deck.Hands
	// NoPlayer marks an unset player reference
	NoPlayer = -1
	// PassBid is the bid amount that means "pass"
	PassBid = -1
	// MinBid and MaxBid bound a real bid
	MinBid = 61
	MaxBid = 120

	// TricksPerGame is the number of tricks in a deal
	TricksPerGame = deck.HandSize

	// DefaultMinimumHandValue is the default fairness floor for a dealt hand
	DefaultMinimumHandValue = 10
	// MaxMinimumHandValue is the highest floor every hand can meet at once (120 points / 5 hands)
	MaxMinimumHandValue = 24

	openingBid      = MinBid - 1
	maxDealAttempts = 10000
)

// Game is the chiamata rules state machine. It is not safe for concurrent use.
type Game struct {
	phase            Phase
	players          [NumPlayers]*Player
	bid              int
	bidWinner        *Player
	partner          *Player
	partnerRank      deck.Rank
	partnerSuit      deck.Suit
	currentTrick     []Play
	currentLeaderID  int
	currentPlayerID  int
	minimumHandValue int
	tricksPlayed     int
	redeals          int
	lastTrick        *TrickResult
	result           *Result
	deck             *deck.Deck
}

// Option configures a Game
type Option func(*Game)

// WithMinimumHandValue sets the fairness floor applied when dealing
func WithMinimumHandValue(v int) Option {
	return func(g *Game) {
		g.minimumHandValue = v
	}
}

// New creates an idle game that shuffles with rng
func New(rng *rand.Rand, opts ...Option) *Game {
	g := &Game{
		phase:            PhaseIdle,
		bid:              openingBid,
		currentLeaderID:  NoPlayer,
		currentPlayerID:  NoPlayer,
		minimumHandValue: DefaultMinimumHandValue,
		deck:             deck.NewDeck(rng),
	}
	for i := range g.players {
		g.players[i] = &Player{ID: i}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Phase returns the current phase
func (g *Game) Phase() Phase { return g.phase }

// HighBid returns the current high bid (60 until someone bids)
func (g *Game) HighBid() int { return g.bid }

// CallerID returns the bid winner's id, or NoPlayer
func (g *Game) CallerID() int { return playerID(g.bidWinner) }

// PartnerID returns the revealed partner's id, or NoPlayer
func (g *Game) PartnerID() int { return playerID(g.partner) }

// PartnerRank returns the called rank, or 0 before it is called
func (g *Game) PartnerRank() deck.Rank { return g.partnerRank }

// TrumpSuit returns the revealed trump, or deck.NoSuit
func (g *Game) TrumpSuit() deck.Suit { return g.partnerSuit }

// CurrentLeaderID returns who led (or will lead) the current trick
func (g *Game) CurrentLeaderID() int { return g.currentLeaderID }

// CurrentPlayerID returns whose turn it is
func (g *Game) CurrentPlayerID() int { return g.currentPlayerID }

// MinimumHandValue returns the configured fairness floor
func (g *Game) MinimumHandValue() int { return g.minimumHandValue }

// TricksPlayed returns the number of resolved tricks
func (g *Game) TricksPlayed() int { return g.tricksPlayed }

// Redeals returns how many times bidding restarted because everyone passed
func (g *Game) Redeals() int { return g.redeals }

// CurrentTrick returns a copy of the trick in progress
func (g *Game) CurrentTrick() []Play { return clonePlays(g.currentTrick) }

// LastTrick returns the most recently resolved trick
func (g *Game) LastTrick() (TrickResult, bool) {
	if g.lastTrick == nil {
		return TrickResult{}, false
	}
	t := *g.lastTrick
	t.Plays = clonePlays(t.Plays)
	return t, true
}

// Player returns a deep copy of a player
func (g *Game) Player(id int) (Player, error) {
	if err := validatePlayerID(id); err != nil {
		return Player{}, err
	}
	return g.players[id].clone(), nil
}

// Hand returns a copy of a player's current hand
func (g *Game) Hand(id int) ([]deck.Card, error) {
	if err := validatePlayerID(id); err != nil {
		return nil, err
	}
	return slices.Clone(g.players[id].Hand), nil
}

// BiddingComplete reports whether a real bid stands and at least four players passed
func (g *Game) BiddingComplete() bool {
	return g.bid >= MinBid && g.passCount() >= NumPlayers-1
}

func (g *Game) passCount() int {
	count := 0
	for _, p := range g.players {
		if p.Passed() {
			count++
		}
	}
	return count
}

// StartGame moves an idle game to ready
func (g *Game) StartGame() error {
	if err := expectPhase(g.phase, PhaseIdle); err != nil {
		return err
	}
	g.phase = PhaseReady
	return nil
}

// DealCards shuffles and deals until every hand meets the minimum value
func (g *Game) DealCards() error {
	if err := expectPhase(g.phase, PhaseReady); err != nil {
		return err
	}
	hands, err := g.deal()
	if err != nil {
		return err
	}
	g.assignHands(hands)
	g.phase = PhaseBid
	return nil
}

func (g *Game) deal() ([][]deck.Card, error) {
	for range maxDealAttempts {
		hands := g.deck.DealHands()
		fair := true
		for _, hand := range hands {
			if deck.HandValue(hand) < g.minimumHandValue {
				fair = false
				break
			}
		}
		if fair {
			return hands, nil
		}
	}
	return nil, ErrDealExhausted
}

func (g *Game) assignHands(hands [][]deck.Card) {
	for i, p := range g.players {
		p.Hand = hands[i]
		p.OriginalHand = slices.Clone(hands[i])
	}
}

// PlayerBid records a bid or a pass (PassBid). When all five pass the
// cards are redealt and bidding starts over.
func (g *Game) PlayerBid(playerID, amount int) error {
	if err := expectPhase(g.phase, PhaseBid); err != nil {
		return err
	}
	if err := validatePlayerID(playerID); err != nil {
		return err
	}
	if amount != PassBid && (amount < MinBid || amount > MaxBid) {
		return &ValidationError{Field: "bid", Value: amount, Reason: "must be -1 or 61-120"}
	}

	player := g.players[playerID]
	if amount == PassBid && !player.Passed() && g.bid < MinBid && g.passCount() == NumPlayers-1 {
		hands, err := g.deal()
		if err != nil {
			return err
		}
		g.restartBidding(hands)
		return nil
	}

	player.Bid = amount
	if amount > g.bid {
		g.bid = amount
		g.bidWinner = player
	}

	if g.BiddingComplete() {
		g.currentLeaderID = g.bidWinner.ID
		g.currentPlayerID = g.bidWinner.ID
		g.phase = PhaseCallPartnerRank
	}
	return nil
}

func (g *Game) restartBidding(hands [][]deck.Card) {
	for _, p := range g.players {
		p.Bid = 0
	}
	g.bid = openingBid
	g.bidWinner = nil
	g.assignHands(hands)
	g.redeals++
}

// CallPartnerRank records the rank half of the partner card
func (g *Game) CallPartnerRank(rank deck.Rank) error {
	if err := expectPhase(g.phase, PhaseCallPartnerRank); err != nil {
		return err
	}
	if !rank.Valid() {
		return &ValidationError{Field: "partner_rank", Value: int(rank), Reason: "must be 1-10"}
	}
	g.partnerRank = rank
	g.phase = PhasePlayFirstTrick
	return nil
}

// PlayCard lays a card from the current player's hand. It returns the
// resolved trick when the play completes any trick but the first.
func (g *Game) PlayCard(playerID int, card deck.Card) (*TrickResult, error) {
	if err := expectPhase(g.phase, PhasePlayFirstTrick, PhasePlayTricks, PhaseTrickWon); err != nil {
		return nil, err
	}
	if err := validatePlayerID(playerID); err != nil {
		return nil, err
	}
	player := g.players[playerID]
	idx := player.Holds(card)
	if idx < 0 {
		return nil, &CardNotInHandError{PlayerID: playerID, Card: card}
	}
	if playerID != g.currentPlayerID {
		return nil, &TurnError{PlayerID: playerID, Expected: g.currentPlayerID}
	}

	player.Hand = slices.Delete(player.Hand, idx, idx+1)
	g.currentTrick = append(g.currentTrick, Play{Card: card, PlayerID: playerID})
	g.currentPlayerID = (g.currentPlayerID + 1) % NumPlayers

	if len(g.currentTrick) < NumPlayers {
		if g.phase != PhasePlayFirstTrick {
			g.phase = PhasePlayTricks
		}
		return nil, nil
	}

	switch g.phase {
	case PhasePlayFirstTrick:
		// Trump is still hidden; resolution waits for CallPartnerSuit.
		g.phase = PhaseCallPartnerSuit
		return nil, nil
	case PhasePlayTricks, PhaseTrickWon:
		g.phase = PhaseTrickWon
		return g.resolveTrick()
	default:
		return nil, &StateError{Expected: []Phase{PhasePlayFirstTrick, PhasePlayTricks}, Actual: g.phase}
	}
}

// CallPartnerSuit reveals trump, identifies the partner from the dealt
// hands and resolves the first trick.
func (g *Game) CallPartnerSuit(suit deck.Suit) (*TrickResult, error) {
	if err := expectPhase(g.phase, PhaseCallPartnerSuit); err != nil {
		return nil, err
	}
	if !suit.Valid() {
		return nil, &ValidationError{Field: "partner_suit", Value: suit.String(), Reason: "must be cups, coins, swords or clubs"}
	}

	card := deck.NewCard(suit, g.partnerRank)
	partner := g.holderOf(card)
	if partner == nil {
		return nil, &LookupError{Card: card}
	}

	g.partnerSuit = suit
	g.partner = partner
	g.phase = PhaseTrickWon
	return g.resolveTrick()
}

// holderOf scans dealt hands, so cards already played still count.
func (g *Game) holderOf(card deck.Card) *Player {
	for _, p := range g.players {
		if slices.Contains(p.OriginalHand, card) {
			return p
		}
	}
	return nil
}

func (g *Game) resolveTrick() (*TrickResult, error) {
	winner, err := ResolveTrick(g.currentTrick, g.partnerSuit)
	if err != nil {
		return nil, err
	}

	plays := g.currentTrick
	points := TrickPoints(plays)
	p := g.players[winner.PlayerID]
	p.TricksWon = append(p.TricksWon, plays)
	p.Points += points

	g.tricksPlayed++
	g.lastTrick = &TrickResult{
		Number: g.tricksPlayed,
		Winner: winner,
		Points: points,
		Plays:  clonePlays(plays),
	}
	g.currentTrick = nil
	g.currentLeaderID = winner.PlayerID
	g.currentPlayerID = winner.PlayerID

	if g.tricksPlayed == TricksPerGame {
		g.phase = PhaseFinished
		res := g.computeResult()
		g.result = &res
	}

	result := *g.lastTrick
	result.Plays = clonePlays(result.Plays)
	return &result, nil
}

// ReorderHand rearranges a player's hand. Cards in order that the player
// holds come first, each once, in the given order; the rest follow in their
// previous order. Unknown and repeated cards are ignored, so the result is
// always a permutation of the hand.
func (g *Game) ReorderHand(playerID int, order []deck.Card) ([]deck.Card, error) {
	if !g.phase.Dealt() {
		return nil, &StateError{
			Expected: []Phase{PhaseBid, PhaseCallPartnerRank, PhasePlayFirstTrick, PhaseCallPartnerSuit, PhasePlayTricks, PhaseTrickWon, PhaseFinished},
			Actual:   g.phase,
		}
	}
	if err := validatePlayerID(playerID); err != nil {
		return nil, err
	}

	player := g.players[playerID]
	used := make([]bool, len(player.Hand))
	reordered := make([]deck.Card, 0, len(player.Hand))
	for _, want := range order {
		for i, held := range player.Hand {
			if !used[i] && held == want {
				used[i] = true
				reordered = append(reordered, held)
				break
			}
		}
	}
	for i, held := range player.Hand {
		if !used[i] {
			reordered = append(reordered, held)
		}
	}

	player.Hand = reordered
	return slices.Clone(reordered), nil
}

func playerID(p *Player) int {
	if p == nil {
		return NoPlayer
	}
	return p.ID
}
