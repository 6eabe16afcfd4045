package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapster88/briscola/internal/deck"
	"github.com/lapster88/briscola/internal/protocol"
)

func TestSendBuildsAction(t *testing.T) {
	cmd := SendCmd{
		Game:     "g1",
		Player:   lo.ToPtr(2),
		Type:     protocol.TypePlay,
		ActionID: "a-1",
		Card:     lo.ToPtr(13),
	}
	act, err := cmd.Action()
	require.NoError(t, err)

	assert.Equal(t, "g1", act.GameID)
	assert.Equal(t, "a-1", act.ID())
	assert.Equal(t, protocol.TypePlay, act.Type())
	assert.Equal(t, protocol.RolePlayer, act.Role)

	payload, err := act.DecodePayload()
	require.NoError(t, err)
	card, err := payload.PlayedCard()
	require.NoError(t, err)
	assert.Equal(t, 13, card.ID())
}

func TestSendReorderAndDefaults(t *testing.T) {
	cmd := SendCmd{Game: "g1", Player: lo.ToPtr(0), Type: protocol.TypeReorder, Hand: []int{7, 0}}
	act, err := cmd.Action()
	require.NoError(t, err)
	assert.NotEmpty(t, act.ActionID)

	payload, err := act.DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, []deck.Card{lo.Must(deck.CardFromID(7)), lo.Must(deck.CardFromID(0))}, payload.HandOrder())

	cmd.Hand = []int{40}
	_, err = cmd.Action()
	assert.Error(t, err)
}

func TestSendStrictGameID(t *testing.T) {
	cmd := SendCmd{Game: "not-generated", Type: protocol.TypeSync, Observer: true, Strict: true}
	_, err := cmd.Action()
	assert.Error(t, err)

	cmd.Strict = false
	act, err := cmd.Action()
	require.NoError(t, err)
	assert.True(t, act.IsObserver())
}

func TestPrintEvent(t *testing.T) {
	ev, err := protocol.NewEvent("g1", protocol.OK("a-9", nil), protocol.Meta{ActionID: "a-9", PlayerID: lo.ToPtr(3)}, time.UnixMilli(0), "1.0.0")
	require.NoError(t, err)
	data, err := protocol.Marshal(ev)
	require.NoError(t, err)

	var buf bytes.Buffer
	printEvent(&buf, data)
	line := buf.String()
	assert.Contains(t, line, protocol.TypeActionResult)
	assert.Contains(t, line, "player=3")
	assert.Contains(t, line, "action=a-9")

	buf.Reset()
	printEvent(&buf, []byte("nope"))
	assert.Contains(t, buf.String(), "malformed event")
}
