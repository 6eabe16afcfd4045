package main

import (
	"context"
	"fmt"

	"github.com/lapster88/briscola/internal/broker"
	"github.com/lapster88/briscola/internal/server"
)

// BusFlags locate the Redis instance the service uses
type BusFlags struct {
	RedisURL  string `kong:"name='redis-url',env='REDIS_URL',default='redis://localhost:6379/0',help='Redis connection URL'"`
	KeyPrefix string `kong:"name='key-prefix',env='KEY_PREFIX',default='game',help='Channel and key prefix'"`
}

func (f BusFlags) keys() server.Keys {
	return server.Keys{Prefix: f.KeyPrefix}
}

func (f BusFlags) dial(ctx context.Context) (*broker.Redis, error) {
	bus, err := broker.DialRedis(ctx, f.RedisURL, broker.WithPoolSize(2), broker.WithMinIdleConns(0))
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return bus, nil
}
