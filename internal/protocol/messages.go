package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lapster88/briscola/internal/deck"
	"github.com/lapster88/briscola/internal/game"
)

var (
	// ErrUnknownMessageType is returned for an action type the game does not handle
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrMissingGameID is returned when an action envelope has no game id
	ErrMissingGameID = errors.New("action has no game_id")
)

// Client -> Server
const (
	TypeJoin            = "join"
	TypeSync            = "sync"
	TypeBid             = "bid"
	TypeCallPartnerRank = "call-partner-rank"
	TypeCallPartnerSuit = "call-partner-suit"
	TypePlay            = "play"
	TypeReorder         = "reorder"
)

// Server -> Client
const (
	TypeActionResult = "action.result"
	TypePhaseChange  = "phase.change"
	TypeTrickPlayed  = "trick.played"
	TypeTrickWon     = "trick.won"
	TypeHandUpdate   = "hand.update"
	TypeGameOver     = "game.over"
)

// Origin tags every event published by the game service
const Origin = "game"

// Role of the sender of an action
type Role string

const (
	RolePlayer   Role = "player"
	RoleObserver Role = "observer"
)

// Status of an action result
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Code classifies a failed action
type Code string

const (
	CodeInvalidAction  Code = "invalid_action"
	CodeInvalidCard    Code = "invalid_card"
	CodeInvalidPayload Code = "invalid_payload"
)

// Recovery tells the client what to do after a failure
type Recovery string

const (
	RecoveryNoop  Recovery = "noop"
	RecoveryRetry Recovery = "retry"
)

// Client -> Server Messages

// Action is the envelope published on game.{id}.actions. The payload is
// kept raw so a malformed payload can still be answered with a result.
type Action struct {
	GameID      string          `json:"game_id"`
	ActionID    string          `json:"action_id,omitempty"`
	PlayerID    *int            `json:"player_id"`
	Role        Role            `json:"role,omitempty"`
	MessageType string          `json:"message_type,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// ActionPayload carries the arguments of every action type. Only the
// fields relevant to the message type are read.
type ActionPayload struct {
	MessageType string    `json:"message_type,omitempty"`
	ActionID    string    `json:"action_id,omitempty"`
	Bid         *int      `json:"bid,omitempty"`
	PartnerRank *int      `json:"partner_rank,omitempty"`
	PartnerSuit string    `json:"partner_suit,omitempty"`
	Card        *CardRef  `json:"card,omitempty"`
	CardID      *int      `json:"card_id,omitempty"`
	Hand        []CardRef `json:"hand,omitempty"`
}

type payloadHeader struct {
	MessageType string `json:"message_type"`
	ActionID    string `json:"action_id"`
}

// ParseAction decodes an action envelope
func ParseAction(data []byte) (*Action, error) {
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	if a.GameID == "" {
		return nil, ErrMissingGameID
	}
	return &a, nil
}

func (a *Action) header() payloadHeader {
	var h payloadHeader
	if len(a.Payload) > 0 {
		_ = json.Unmarshal(a.Payload, &h)
	}
	return h
}

// Type returns the message type, preferring the one inside the payload
func (a *Action) Type() string {
	if t := a.header().MessageType; t != "" {
		return t
	}
	return a.MessageType
}

// ID returns the action id from the envelope or, failing that, the payload
func (a *Action) ID() string {
	if a.ActionID != "" {
		return a.ActionID
	}
	return a.header().ActionID
}

// IsObserver reports whether the sender only watches the game
func (a *Action) IsObserver() bool {
	return a.Role == RoleObserver
}

// DecodePayload decodes the action arguments
func (a *Action) DecodePayload() (ActionPayload, error) {
	var p ActionPayload
	if len(a.Payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return ActionPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

// PlayedCard returns the card of a play action, given as an object or an id
func (p ActionPayload) PlayedCard() (deck.Card, error) {
	switch {
	case p.Card != nil:
		return p.Card.Card, nil
	case p.CardID != nil:
		return deck.CardFromID(*p.CardID)
	default:
		return deck.Card{}, errors.New("play needs card or card_id")
	}
}

// HandOrder returns the requested order of a reorder action
func (p ActionPayload) HandOrder() []deck.Card {
	out := make([]deck.Card, len(p.Hand))
	for i, ref := range p.Hand {
		out[i] = ref.Card
	}
	return out
}

// CardRef is a card given either as {"suit","rank"}, {"card_id"} or a bare id
type CardRef struct {
	deck.Card
}

// UnmarshalJSON accepts all three card forms and rejects invalid cards
func (r *CardRef) UnmarshalJSON(data []byte) error {
	var id int
	if err := json.Unmarshal(data, &id); err == nil {
		c, err := deck.CardFromID(id)
		if err != nil {
			return err
		}
		r.Card = c
		return nil
	}

	var obj struct {
		Suit   *deck.Suit `json:"suit"`
		Rank   *deck.Rank `json:"rank"`
		CardID *int       `json:"card_id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("card: %w", err)
	}
	if obj.Suit != nil && obj.Rank != nil {
		c := deck.NewCard(*obj.Suit, *obj.Rank)
		if !c.Valid() {
			return fmt.Errorf("invalid card %s", c)
		}
		r.Card = c
		return nil
	}
	if obj.CardID != nil {
		c, err := deck.CardFromID(*obj.CardID)
		if err != nil {
			return err
		}
		r.Card = c
		return nil
	}
	return errors.New("card needs suit and rank or card_id")
}

// MarshalJSON writes the object form
func (r CardRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Card)
}

// Server -> Client Messages

// Meta identifies the action an event answers
type Meta struct {
	ActionID string
	PlayerID *int
	Role     Role
}

// Event is the envelope published on game.{id}.events
type Event struct {
	MessageType     string          `json:"message_type"`
	GameID          string          `json:"game_id"`
	ActionID        string          `json:"action_id,omitempty"`
	PlayerID        *int            `json:"player_id"`
	Role            Role            `json:"role,omitempty"`
	Timestamp       int64           `json:"timestamp"`
	ProtocolVersion string          `json:"protocol_version"`
	Origin          string          `json:"origin"`
	Payload         json.RawMessage `json:"payload"`
}

// Message is any event payload
type Message interface {
	Type() string
}

// ParseEvent decodes an event envelope
func ParseEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

// DecodePayload decodes the event payload into v
func (e *Event) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// HandCard is a held card with its compact id
type HandCard struct {
	deck.Card
	CardID int `json:"card_id"`
}

// HandCards converts a hand for the wire
func HandCards(cards []deck.Card) []HandCard {
	out := make([]HandCard, len(cards))
	for i, c := range cards {
		out[i] = HandCard{Card: c, CardID: c.ID()}
	}
	return out
}

// Score is one player's running points
type Score struct {
	PlayerID int `json:"player_id"`
	Points   int `json:"points"`
}

// ActionResult answers every action exactly once
type ActionResult struct {
	MessageType string         `json:"message_type"`
	ActionID    string         `json:"action_id"`
	Status      Status         `json:"status"`
	Code        Code           `json:"code,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Effects     map[string]any `json:"effects"`
	Recovery    Recovery       `json:"recovery,omitempty"`
}

func (ActionResult) Type() string { return TypeActionResult }

// OK builds a successful result
func OK(actionID string, effects map[string]any) *ActionResult {
	if effects == nil {
		effects = map[string]any{}
	}
	return &ActionResult{
		MessageType: TypeActionResult,
		ActionID:    actionID,
		Status:      StatusOK,
		Effects:     effects,
	}
}

// Failure builds an error result
func Failure(actionID string, code Code, reason string, recovery Recovery) *ActionResult {
	return &ActionResult{
		MessageType: TypeActionResult,
		ActionID:    actionID,
		Status:      StatusError,
		Code:        code,
		Reason:      reason,
		Effects:     map[string]any{},
		Recovery:    recovery,
	}
}

// PhaseChange is broadcast after bidding, partner calls and redeals
type PhaseChange struct {
	MessageType string     `json:"message_type"`
	Phase       game.Phase `json:"phase"`
	CallerID    *int       `json:"caller_id,omitempty"`
	HighBid     *int       `json:"high_bid,omitempty"`
	PartnerID   *int       `json:"partner_id,omitempty"`
	PartnerRank *int       `json:"partner_rank,omitempty"`
	TrumpSuit   string     `json:"trump_suit,omitempty"`
	Redealt     bool       `json:"redealt,omitempty"`
}

func (PhaseChange) Type() string { return TypePhaseChange }

// TrickPlayed is broadcast after every accepted card
type TrickPlayed struct {
	MessageType     string      `json:"message_type"`
	GameID          string      `json:"game_id"`
	PlayerID        int         `json:"player_id"`
	Card            deck.Card   `json:"card"`
	Trick           []game.Play `json:"trick"`
	CurrentPlayerID int         `json:"current_player_id"`
}

func (TrickPlayed) Type() string { return TypeTrickPlayed }

// TrickWon is broadcast when a trick is resolved
type TrickWon struct {
	MessageType     string      `json:"message_type"`
	GameID          string      `json:"game_id"`
	Number          int         `json:"number"`
	WinnerID        int         `json:"winner_id"`
	Card            deck.Card   `json:"winning_card"`
	Points          int         `json:"points"`
	TrickCards      []game.Play `json:"trick_cards"`
	Scores          []Score     `json:"scores"`
	CurrentPlayerID int         `json:"current_player_id"`
}

func (TrickWon) Type() string { return TypeTrickWon }

// HandUpdate is broadcast after a reorder
type HandUpdate struct {
	MessageType string     `json:"message_type"`
	GameID      string     `json:"game_id"`
	PlayerID    int        `json:"player_id"`
	Hand        []HandCard `json:"hand"`
}

func (HandUpdate) Type() string { return TypeHandUpdate }

// GameOver is broadcast once the eighth trick is resolved
type GameOver struct {
	MessageType string      `json:"message_type"`
	GameID      string      `json:"game_id"`
	Result      game.Result `json:"result"`
	Scores      []Score     `json:"scores"`
}

func (GameOver) Type() string { return TypeGameOver }
