package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lapster88/briscola/internal/fileutil"
	"github.com/lapster88/briscola/internal/protocol"
	"github.com/lapster88/briscola/internal/randutil"
)

// SnapshotCmd exports a game's stored snapshot or loads one back
type SnapshotCmd struct {
	BusFlags `kong:"embed"`

	Game string        `kong:"required,help='Game id'"`
	Out  string        `kong:"short='o',help='Write the snapshot to this file instead of stdout'"`
	Load string        `kong:"help='Store the snapshot read from this file'"`
	TTL  time.Duration `kong:"name='ttl',default='1h',help='Expiry of a loaded snapshot'"`
}

func (c *SnapshotCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	bus, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer bus.Close()

	key := c.keys().State(c.Game)
	if c.Load != "" {
		data, err := os.ReadFile(c.Load)
		if err != nil {
			return err
		}
		if err := checkSnapshot(data); err != nil {
			return err
		}
		return bus.Set(ctx, key, data, c.TTL)
	}

	data, err := bus.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if c.Out == "" {
		_, err = fmt.Println(string(data))
		return err
	}
	return fileutil.WriteJSONAtomic(c.Out, data)
}

// checkSnapshot rejects files an actor could not resume from
func checkSnapshot(data []byte) error {
	snap, err := protocol.ParseSnapshot(data)
	if err != nil {
		return err
	}
	if _, err := snap.Hydrate(randutil.New(0)); err != nil {
		return fmt.Errorf("snapshot does not restore: %w", err)
	}
	return nil
}
