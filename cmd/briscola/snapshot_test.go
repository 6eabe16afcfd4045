package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapster88/briscola/internal/game"
	"github.com/lapster88/briscola/internal/protocol"
	"github.com/lapster88/briscola/internal/randutil"
)

func TestCheckSnapshot(t *testing.T) {
	g := game.New(randutil.New(3))
	require.NoError(t, g.StartGame())
	require.NoError(t, g.DealCards())
	data, err := protocol.Marshal(protocol.PersistedSnapshot("g1", g))
	require.NoError(t, err)

	assert.NoError(t, checkSnapshot(data))
	assert.Error(t, checkSnapshot([]byte("nope")))
	assert.Error(t, checkSnapshot([]byte(`{"phase":"bid","trump_suit":"bogus"}`)))
}
