package redisstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskwatch/internal/config"
	"github.com/phrazzld/taskwatch/internal/lifecycle"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	m, err := miniredis.Run()
	require.NoError(t, err, "start miniredis")
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})
	return m, client
}

func TestAttributionHoldTake(t *testing.T) {
	m, client := newTestClient(t)
	ctx := context.Background()
	attrib := NewAttribution(client, time.Hour)

	received := time.Date(2024, 5, 1, 7, 5, 0, 0, time.UTC)
	require.NoError(t, attrib.Hold(ctx, "chat-1", lifecycle.HeldEvidence{Evidence: "video-1", ReceivedAt: received}))

	assert.True(t, m.Exists("taskwatch:attribution:chat-1"))
	assert.Equal(t, time.Hour, m.TTL("taskwatch:attribution:chat-1"))

	_, ok, err := attrib.Take(ctx, "chat-2")
	require.NoError(t, err)
	assert.False(t, ok)

	held, ok, err := attrib.Take(ctx, "chat-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "video-1", held.Evidence)
	assert.True(t, held.ReceivedAt.Equal(received))
	assert.False(t, m.Exists("taskwatch:attribution:chat-1"))

	_, ok, err = attrib.Take(ctx, "chat-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAttributionExpiry(t *testing.T) {
	m, client := newTestClient(t)
	ctx := context.Background()
	attrib := NewAttribution(client, time.Minute)

	require.NoError(t, attrib.Hold(ctx, "chat-1", lifecycle.HeldEvidence{Evidence: "video-1"}))
	m.FastForward(2 * time.Minute)

	_, ok, err := attrib.Take(ctx, "chat-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAttributionCorruptValue(t *testing.T) {
	m, client := newTestClient(t)
	require.NoError(t, m.Set("taskwatch:attribution:chat-1", "not json"))

	_, _, err := NewAttribution(client, 0).Take(context.Background(), "chat-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode held evidence")
}

func TestDeduper(t *testing.T) {
	m, client := newTestClient(t)
	ctx := context.Background()
	deduper := NewDeduper(client, time.Minute)

	added, err := deduper.Add(ctx, "completions", "k1")
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, m.Exists("taskwatch:idempotency:completions:k1"))

	added, err = deduper.Add(ctx, "completions", "k1")
	require.NoError(t, err)
	assert.False(t, added, "second add should be a duplicate")

	added, err = deduper.Add(ctx, "other", "k1")
	require.NoError(t, err)
	assert.True(t, added, "scopes are independent")

	require.NoError(t, deduper.Remove(ctx, "completions", "k1"))
	added, err = deduper.Add(ctx, "completions", "k1")
	require.NoError(t, err)
	assert.True(t, added, "removed key can be added again")
}

func TestNewClient(t *testing.T) {
	m, _ := newTestClient(t)
	addr := m.Addr()

	client, err := NewClient(context.Background(), config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	m.Close()
	_, err = NewClient(context.Background(), config.RedisConfig{Addr: addr})
	require.Error(t, err)
}
