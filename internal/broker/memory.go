package broker

import (
	"context"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Memory is an in-process Broker. Publishing blocks until every matching
// subscriber has buffer room, so delivery is lossless and ordered per
// publisher.
type Memory struct {
	clock quartz.Clock

	mu     sync.Mutex
	values map[string]memoryEntry
	subs   []*memorySubscription
	closed bool
}

type memoryEntry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// NewMemory creates an empty broker whose key expiry follows clock
func NewMemory(clock quartz.Clock) *Memory {
	return &Memory{
		clock:  clock,
		values: make(map[string]memoryEntry),
	}
}

// Publish implements Publisher
func (m *Memory) Publish(ctx context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	targets := slices.Clone(m.subs)
	m.mu.Unlock()

	for _, sub := range targets {
		pattern, ok := sub.match(channel)
		if !ok {
			continue
		}
		msg := Message{Channel: channel, Pattern: pattern, Payload: slices.Clone(payload)}
		if err := sub.deliver(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe implements Subscriber
func (m *Memory) Subscribe(_ context.Context, channel string) (Subscription, error) {
	return m.add(&memorySubscription{channel: channel})
}

// PSubscribe implements Subscriber
func (m *Memory) PSubscribe(_ context.Context, pattern string) (Subscription, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	return m.add(&memorySubscription{pattern: pattern})
}

func (m *Memory) add(sub *memorySubscription) (Subscription, error) {
	sub.out = make(chan Message, subscriptionBuffer)
	sub.done = make(chan struct{})
	sub.owner = m

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	m.subs = append(m.subs, sub)
	return sub, nil
}

func (m *Memory) remove(sub *memorySubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = slices.DeleteFunc(m.subs, func(s *memorySubscription) bool { return s == sub })
}

// Get implements Store
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(e.value), nil
}

// Set implements Store
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	e := memoryEntry{value: slices.Clone(value)}
	if ttl > 0 {
		e.expires = m.clock.Now().Add(ttl)
	}
	m.values[key] = e
	return nil
}

// TTL implements Store
func (m *Memory) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return 0, ErrNotFound
	}
	if e.expires.IsZero() {
		return NoExpiry, nil
	}
	return e.expires.Sub(m.clock.Now()), nil
}

// Delete removes a key; it is not part of Store and exists for tests and tooling
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// live must be called with mu held
func (m *Memory) live(key string) (memoryEntry, bool) {
	e, ok := m.values[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expires.IsZero() && !m.clock.Now().Before(e.expires) {
		delete(m.values, key)
		return memoryEntry{}, false
	}
	return e, true
}

// Close ends every subscription and rejects further use
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()

	for _, s := range subs {
		s.shutdown()
	}
	return nil
}

type memorySubscription struct {
	owner   *Memory
	channel string
	pattern string

	out  chan Message
	done chan struct{}
	once sync.Once

	// sendMu lets Close wait for in-flight deliveries before closing out.
	sendMu sync.RWMutex
	closed bool
}

func (s *memorySubscription) match(channel string) (string, bool) {
	if s.pattern == "" {
		return "", s.channel == channel
	}
	ok, _ := path.Match(s.pattern, channel)
	return s.pattern, ok
}

func (s *memorySubscription) deliver(ctx context.Context, msg Message) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.out <- msg:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memorySubscription) Messages() <-chan Message { return s.out }

func (s *memorySubscription) Close() error {
	s.owner.remove(s)
	s.shutdown()
	return nil
}

func (s *memorySubscription) shutdown() {
	s.once.Do(func() {
		close(s.done)
		s.sendMu.Lock()
		s.closed = true
		close(s.out)
		s.sendMu.Unlock()
	})
}

var _ Broker = (*Memory)(nil)
