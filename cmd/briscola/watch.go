package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lapster88/briscola/cmd/briscola/shared"
	"github.com/lapster88/briscola/internal/protocol"
)

// WatchCmd prints every event published for a game
type WatchCmd struct {
	BusFlags `kong:"embed"`

	Game string `kong:"required,help='Game id'"`
	Raw  bool   `kong:"help='Print raw JSON envelopes'"`
}

func (c *WatchCmd) Run() error {
	ctx := shared.SignalContext(nil)
	bus, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer bus.Close()

	sub, err := bus.Subscribe(ctx, c.keys().Events(c.Game))
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			if c.Raw {
				fmt.Println(string(msg.Payload))
				continue
			}
			printEvent(os.Stdout, msg.Payload)
		}
	}
}

// printEvent writes one line per event: time, type, action and payload
func printEvent(w io.Writer, data []byte) {
	ev, err := protocol.ParseEvent(data)
	if err != nil {
		fmt.Fprintf(w, "malformed event: %s\n", data)
		return
	}
	ts := time.UnixMilli(ev.Timestamp).Format("15:04:05.000")
	player := "-"
	if ev.PlayerID != nil {
		player = fmt.Sprint(*ev.PlayerID)
	}
	fmt.Fprintf(w, "%s %-14s player=%s action=%s %s\n", ts, ev.MessageType, player, ev.ActionID, ev.Payload)
}
