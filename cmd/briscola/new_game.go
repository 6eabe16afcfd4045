package main

import (
	"fmt"

	"github.com/lapster88/briscola/internal/gameid"
)

// NewGameCmd prints a game id; the game itself starts on its first action
type NewGameCmd struct{}

func (c *NewGameCmd) Run() error {
	fmt.Println(gameid.Generate())
	return nil
}
