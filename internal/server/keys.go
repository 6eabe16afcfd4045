package server

import "strings"

// Keys names the bus channels and store keys for a key prefix
type Keys struct {
	Prefix string
}

// Actions is the inbound channel of a game
func (k Keys) Actions(gameID string) string {
	return k.Prefix + "." + gameID + ".actions"
}

// Events is the outbound channel of a game
func (k Keys) Events(gameID string) string {
	return k.Prefix + "." + gameID + ".events"
}

// ActionsPattern matches the inbound channel of every game
func (k Keys) ActionsPattern() string {
	return k.Actions("*")
}

// Heartbeat is the liveness key of a game's actor
func (k Keys) Heartbeat(gameID string) string {
	return k.Prefix + ":" + gameID + ":heartbeat"
}

// State is the snapshot key of a game
func (k Keys) State(gameID string) string {
	return k.Prefix + ":" + gameID + ":state"
}

// GameFromChannel extracts the game id from an actions or events channel
func (k Keys) GameFromChannel(channel string) (string, bool) {
	rest, ok := strings.CutPrefix(channel, k.Prefix+".")
	if !ok {
		return "", false
	}
	for _, suffix := range []string{".actions", ".events"} {
		if id, ok := strings.CutSuffix(rest, suffix); ok && id != "" {
			return id, true
		}
	}
	return "", false
}
