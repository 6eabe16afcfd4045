package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lapster88/briscola/internal/deck"
)

var (
	// ErrDealExhausted is returned when no shuffle met the minimum hand value.
	ErrDealExhausted = errors.New("no deal satisfied the minimum hand value")
	// ErrEmptyTrick is returned when resolving a trick with no plays.
	ErrEmptyTrick = errors.New("trick has no plays")
)

// ValidationError reports an out-of-range argument
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// StateError reports an operation attempted in the wrong phase
type StateError struct {
	Expected []Phase
	Actual   Phase
}

func (e *StateError) Error() string {
	names := make([]string, len(e.Expected))
	for i, p := range e.Expected {
		names[i] = p.String()
	}
	return fmt.Sprintf("state is %s, expected %s", e.Actual, strings.Join(names, " or "))
}

// TurnError reports a play by someone other than the current player
type TurnError struct {
	PlayerID int
	Expected int
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("player %d played out of turn, waiting on player %d", e.PlayerID, e.Expected)
}

// LookupError reports that nobody was dealt the called partner card
type LookupError struct {
	Card deck.Card
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("partner card %s not found", e.Card)
}

// CardNotInHandError reports a play of a card the player does not hold
type CardNotInHandError struct {
	PlayerID int
	Card     deck.Card
}

func (e *CardNotInHandError) Error() string {
	return fmt.Sprintf("player %d does not hold %s", e.PlayerID, e.Card)
}

func expectPhase(actual Phase, allowed ...Phase) error {
	for _, p := range allowed {
		if actual == p {
			return nil
		}
	}
	return &StateError{Expected: allowed, Actual: actual}
}

func validatePlayerID(id int) error {
	if id < 0 || id >= NumPlayers {
		return &ValidationError{Field: "player_id", Value: id, Reason: "must be 0-4"}
	}
	return nil
}
