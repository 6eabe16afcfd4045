package broker

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-sub.Messages():
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestMemoryPublishSubscribe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory(quartz.NewMock(t))
	defer m.Close()

	exact, err := m.Subscribe(ctx, "game.A.events")
	require.NoError(t, err)
	pattern, err := m.PSubscribe(ctx, "game.*.actions")
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, "game.A.events", []byte("e1")))
	require.NoError(t, m.Publish(ctx, "game.B.actions", []byte("a1")))
	require.NoError(t, m.Publish(ctx, "game.A.actions", []byte("a2")))
	require.NoError(t, m.Publish(ctx, "lobby", []byte("ignored")))

	msg := receive(t, exact)
	assert.Equal(t, "game.A.events", msg.Channel)
	assert.Empty(t, msg.Pattern)
	assert.Equal(t, []byte("e1"), msg.Payload)

	msg = receive(t, pattern)
	assert.Equal(t, "game.B.actions", msg.Channel)
	assert.Equal(t, "game.*.actions", msg.Pattern)
	assert.Equal(t, []byte("a1"), msg.Payload)
	assert.Equal(t, []byte("a2"), receive(t, pattern).Payload)

	select {
	case msg := <-exact.Messages():
		t.Fatalf("unexpected message %q", msg.Payload)
	case msg := <-pattern.Messages():
		t.Fatalf("unexpected message %q", msg.Payload)
	default:
	}
}

func TestMemoryPublishCopiesPayload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory(quartz.NewMock(t))
	defer m.Close()

	sub, err := m.Subscribe(ctx, "c")
	require.NoError(t, err)

	payload := []byte("abc")
	require.NoError(t, m.Publish(ctx, "c", payload))
	payload[0] = 'x'
	assert.Equal(t, []byte("abc"), receive(t, sub).Payload)
}

func TestMemorySubscriptionClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory(quartz.NewMock(t))

	sub, err := m.Subscribe(ctx, "c")
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Messages()
	assert.False(t, ok)
	require.NoError(t, m.Publish(ctx, "c", []byte("x")))

	other, err := m.PSubscribe(ctx, "*")
	require.NoError(t, err)
	require.NoError(t, m.Close())
	_, ok = <-other.Messages()
	assert.False(t, ok)

	require.ErrorIs(t, m.Publish(ctx, "c", nil), ErrClosed)
	_, err = m.Subscribe(ctx, "c")
	require.ErrorIs(t, err, ErrClosed)
}

func TestMemoryPublishRespectsContext(t *testing.T) {
	t.Parallel()
	m := NewMemory(quartz.NewMock(t))
	defer m.Close()

	_, err := m.Subscribe(context.Background(), "c")
	require.NoError(t, err)
	for range subscriptionBuffer {
		require.NoError(t, m.Publish(context.Background(), "c", nil))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, m.Publish(ctx, "c", nil), context.DeadlineExceeded)
}

func TestMemoryBadPattern(t *testing.T) {
	t.Parallel()
	m := NewMemory(quartz.NewMock(t))
	defer m.Close()
	_, err := m.PSubscribe(context.Background(), "game.[.actions")
	require.Error(t, err)
}

func TestMemoryStoreExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := quartz.NewMock(t)
	m := NewMemory(clock)
	defer m.Close()

	_, err := m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.TTL(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 20*time.Second))
	require.NoError(t, m.Set(ctx, "forever", []byte("f"), 0))

	ttl, err := m.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, ttl)

	clock.Advance(15 * time.Second).MustWait(ctx)
	ttl, err = m.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, ttl)
	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	clock.Advance(5 * time.Second).MustWait(ctx)
	_, err = m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.TTL(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	ttl, err = m.TTL(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, NoExpiry, ttl)

	// Overwriting refreshes the expiry.
	require.NoError(t, m.Set(ctx, "k", []byte("v2"), 10*time.Second))
	ttl, err = m.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, ttl)

	m.Delete("k")
	_, err = m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory(quartz.NewMock(t))
	defer m.Close()

	require.NoError(t, m.Set(ctx, "k", []byte("abc"), 0))
	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	v[0] = 'x'

	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
