// Package broker abstracts the publish/subscribe bus and the key/value store
// the game service runs on. Redis backs production; Memory backs tests and
// single-process runs.
package broker

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for a missing or expired key
var ErrNotFound = errors.New("key not found")

// ErrClosed is returned after the broker has been closed
var ErrClosed = errors.New("broker closed")

// NoExpiry is the TTL reported for a key that never expires
const NoExpiry time.Duration = -1

// Message is one delivery from a subscription
type Message struct {
	Channel string
	Pattern string
	Payload []byte
}

// Subscription delivers messages until closed. The channel is closed when
// the subscription ends.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}

// Publisher sends a payload to every subscriber of a channel
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Subscriber opens subscriptions on exact channels or glob patterns
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	PSubscribe(ctx context.Context, pattern string) (Subscription, error)
}

// Store is a key/value store with per-key expiry
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value; ttl <= 0 keeps the key forever.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// TTL returns the remaining lifetime, NoExpiry, or ErrNotFound.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// Broker is everything the game service needs from its infrastructure
type Broker interface {
	Publisher
	Subscriber
	Store
	Close() error
}
