package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/lapster88/briscola/internal/deck"
	"github.com/lapster88/briscola/internal/gameid"
	"github.com/lapster88/briscola/internal/protocol"
)

// SendCmd publishes a single action envelope
type SendCmd struct {
	BusFlags `kong:"embed"`

	Game     string `kong:"required,help='Game id'"`
	Player   *int   `kong:"help='Acting player id (0-4)'"`
	Observer bool   `kong:"help='Send as an observer'"`
	Type     string `kong:"required,enum='join,sync,bid,call-partner-rank,call-partner-suit,play,reorder',help='Message type'"`
	ActionID string `kong:"name='action-id',help='Action id (generated when empty)'"`
	Bid      *int   `kong:"help='Bid amount, -1 to pass'"`
	Rank     *int   `kong:"help='Partner rank (1-10)'"`
	Suit     string `kong:"help='Partner suit'"`
	Card     *int   `kong:"help='Card id to play (0-39)'"`
	Hand     []int  `kong:"help='Card ids in the desired hand order'"`
	Strict   bool   `kong:"help='Reject game ids that are not generated ids'"`
}

// Action builds the envelope described by the flags
func (c *SendCmd) Action() (*protocol.Action, error) {
	if c.Strict {
		if err := gameid.Validate(c.Game); err != nil {
			return nil, err
		}
	}

	payload := protocol.ActionPayload{
		MessageType: c.Type,
		Bid:         c.Bid,
		PartnerRank: c.Rank,
		PartnerSuit: c.Suit,
		CardID:      c.Card,
	}
	for _, id := range c.Hand {
		card, err := deck.CardFromID(id)
		if err != nil {
			return nil, err
		}
		payload.Hand = append(payload.Hand, protocol.CardRef{Card: card})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	role := protocol.RolePlayer
	if c.Observer {
		role = protocol.RoleObserver
	}
	return &protocol.Action{
		GameID:   c.Game,
		ActionID: lo.Ternary(c.ActionID != "", c.ActionID, uuid.NewString()),
		PlayerID: c.Player,
		Role:     role,
		Payload:  raw,
	}, nil
}

func (c *SendCmd) Run() error {
	act, err := c.Action()
	if err != nil {
		return err
	}
	data, err := protocol.Marshal(act)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	bus, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer bus.Close()

	if err := bus.Publish(ctx, c.keys().Actions(c.Game), data); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	fmt.Println(act.ActionID)
	return nil
}
