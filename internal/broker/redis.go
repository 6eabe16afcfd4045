package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPoolSize    = 10
	defaultMinIdle     = 2
	defaultMaxIdleTime = 5 * time.Minute
	subscriptionBuffer = 256
)

// ClientOption adjusts the Redis client options
type ClientOption func(*redis.Options)

// WithAddress overrides host:port
func WithAddress(addr string) ClientOption {
	return func(o *redis.Options) {
		if _, _, err := net.SplitHostPort(addr); err == nil {
			o.Addr = addr
		}
	}
}

// WithPassword sets the AUTH password
func WithPassword(pass string) ClientOption {
	return func(o *redis.Options) {
		o.Password = pass
	}
}

// WithDB selects the logical database
func WithDB(db int) ClientOption {
	return func(o *redis.Options) {
		if db >= 0 {
			o.DB = db
		}
	}
}

// WithPoolSize sets the connection pool size
func WithPoolSize(size int) ClientOption {
	return func(o *redis.Options) {
		if size > 0 {
			o.PoolSize = size
		}
	}
}

// WithMinIdleConns keeps n connections warm
func WithMinIdleConns(n int) ClientOption {
	return func(o *redis.Options) {
		if n >= 0 {
			o.MinIdleConns = n
		}
	}
}

// WithConnMaxIdleTime closes connections idle longer than d
func WithConnMaxIdleTime(d time.Duration) ClientOption {
	return func(o *redis.Options) {
		if d > 0 {
			o.ConnMaxIdleTime = d
		}
	}
}

// ClientOptions parses a redis:// URL and applies opts on top of the defaults
func ClientOptions(url string, opts ...ClientOption) (*redis.Options, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if options.PoolSize == 0 {
		options.PoolSize = defaultPoolSize
	}
	if options.MinIdleConns == 0 {
		options.MinIdleConns = defaultMinIdle
	}
	if options.ConnMaxIdleTime == 0 {
		options.ConnMaxIdleTime = defaultMaxIdleTime
	}
	for _, opt := range opts {
		opt(options)
	}
	return options, nil
}

// Redis implements Broker on a go-redis client
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// DialRedis connects to url and checks the connection
func DialRedis(ctx context.Context, url string, opts ...ClientOption) (*Redis, error) {
	options, err := ClientOptions(url, opts...)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", options.Addr, err)
	}
	return &Redis{client: client}, nil
}

// Publish implements Publisher
func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

// Subscribe implements Subscriber
func (r *Redis) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	return r.subscribe(ctx, r.client.Subscribe(ctx, channel))
}

// PSubscribe implements Subscriber
func (r *Redis) PSubscribe(ctx context.Context, pattern string) (Subscription, error) {
	return r.subscribe(ctx, r.client.PSubscribe(ctx, pattern))
}

func (r *Redis) subscribe(ctx context.Context, ps *redis.PubSub) (Subscription, error) {
	// Wait for the subscribe confirmation so no publish after return is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	sub := &redisSubscription{
		ps:   ps,
		out:  make(chan Message, subscriptionBuffer),
		done: make(chan struct{}),
	}
	go sub.forward(ps.Channel())
	return sub, nil
}

// Get implements Store
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return val, err
}

// Set implements Store
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

// TTL implements Store
func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// go-redis passes Redis' -2 (missing) and -1 (no expiry) through unscaled.
	switch d {
	case -2:
		return 0, ErrNotFound
	case -1:
		return NoExpiry, nil
	}
	return d, nil
}

// Close closes the underlying client
func (r *Redis) Close() error {
	return r.client.Close()
}

type redisSubscription struct {
	ps   *redis.PubSub
	out  chan Message
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) forward(in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- Message{Channel: m.Channel, Pattern: m.Pattern, Payload: []byte(m.Payload)}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan Message { return s.out }

func (s *redisSubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.ps.Close()
}

var _ Broker = (*Redis)(nil)
