package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientOptionsDefaults(t *testing.T) {
	t.Parallel()
	o, err := ClientOptions("redis://redis:6379/0")
	require.NoError(t, err)

	assert.Equal(t, "redis:6379", o.Addr)
	assert.Equal(t, 0, o.DB)
	assert.Equal(t, defaultPoolSize, o.PoolSize)
	assert.Equal(t, defaultMinIdle, o.MinIdleConns)
	assert.Equal(t, defaultMaxIdleTime, o.ConnMaxIdleTime)
}

func TestClientOptionsOverrides(t *testing.T) {
	t.Parallel()
	o, err := ClientOptions("redis://:secret@localhost:6380/2",
		WithPoolSize(32),
		WithMinIdleConns(4),
		WithConnMaxIdleTime(time.Minute),
		WithDB(5),
		WithAddress("cache:7000"),
	)
	require.NoError(t, err)

	assert.Equal(t, "cache:7000", o.Addr)
	assert.Equal(t, "secret", o.Password)
	assert.Equal(t, 5, o.DB)
	assert.Equal(t, 32, o.PoolSize)
	assert.Equal(t, 4, o.MinIdleConns)
	assert.Equal(t, time.Minute, o.ConnMaxIdleTime)
}

func TestClientOptionsIgnoresInvalidOverrides(t *testing.T) {
	t.Parallel()
	o, err := ClientOptions("redis://localhost:6379/1",
		WithAddress("no-port"),
		WithDB(-1),
		WithPoolSize(0),
		WithPassword("pw"),
	)
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", o.Addr)
	assert.Equal(t, 1, o.DB)
	assert.Equal(t, defaultPoolSize, o.PoolSize)
	assert.Equal(t, "pw", o.Password)
}

func TestClientOptionsBadURL(t *testing.T) {
	t.Parallel()
	_, err := ClientOptions("http://localhost")
	require.Error(t, err)
}
