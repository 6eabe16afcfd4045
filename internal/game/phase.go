package game

import "fmt"

// Phase is the engine's position in the game state machine
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReady
	PhaseBid
	PhaseCallPartnerRank
	PhasePlayFirstTrick
	PhaseCallPartnerSuit
	PhasePlayTricks
	PhaseTrickWon
	PhaseFinished
)

var phaseNames = [...]string{
	PhaseIdle:            "idle",
	PhaseReady:           "ready",
	PhaseBid:             "bid",
	PhaseCallPartnerRank: "call-partner-rank",
	PhasePlayFirstTrick:  "play-first-trick",
	PhaseCallPartnerSuit: "call-partner-suit",
	PhasePlayTricks:      "play-tricks",
	PhaseTrickWon:        "trick-won",
	PhaseFinished:        "finished",
}

// String returns the wire tag of the phase
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// ParsePhase converts a wire tag back into a Phase
func ParsePhase(tag string) (Phase, error) {
	for i, name := range phaseNames {
		if name == tag {
			return Phase(i), nil
		}
	}
	return PhaseIdle, fmt.Errorf("unknown phase %q", tag)
}

// MarshalText encodes the phase as its wire tag
func (p Phase) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

// UnmarshalText decodes a wire tag
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Dealt reports whether hands exist in this phase.
func (p Phase) Dealt() bool {
	switch p {
	case PhaseIdle, PhaseReady:
		return false
	case PhaseBid, PhaseCallPartnerRank, PhasePlayFirstTrick, PhaseCallPartnerSuit,
		PhasePlayTricks, PhaseTrickWon, PhaseFinished:
		return true
	default:
		return false
	}
}

// Playing reports whether a card may be played in this phase.
func (p Phase) Playing() bool {
	switch p {
	case PhasePlayFirstTrick, PhasePlayTricks, PhaseTrickWon:
		return true
	case PhaseIdle, PhaseReady, PhaseBid, PhaseCallPartnerRank, PhaseCallPartnerSuit, PhaseFinished:
		return false
	default:
		return false
	}
}
