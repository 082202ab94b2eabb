package redis

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a live server; set REDIS_ADDR to run them.
func connectOrSkip(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb, err := Connect(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, "test-"+uuid.NewString(), time.Minute)
}

func TestStore_PresenceLifecycle(t *testing.T) {
	s := connectOrSkip(t)
	ctx := context.Background()

	p, err := s.GetPresence(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PresenceOffline, p.Status)

	require.NoError(t, s.AddConnection(ctx, "u1", "c1"))
	require.NoError(t, s.AddConnection(ctx, "u1", "c2"))
	p, err = s.GetPresence(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PresenceOnline, p.Status)
	assert.EqualValues(t, 2, p.Connections)

	require.NoError(t, s.RemoveConnection(ctx, "u1", "c1"))
	p, err = s.GetPresence(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PresenceOnline, p.Status)

	require.NoError(t, s.RemoveConnection(ctx, "u1", "c2"))
	p, err = s.GetPresence(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PresenceOffline, p.Status)
	assert.NotZero(t, p.LastSeen)
}

func TestRelay_PublishSubscribe(t *testing.T) {
	s := connectOrSkip(t)
	relay := NewRelay(s.client, s.prefix)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	go func() {
		_ = relay.Subscribe(ctx, func(frame []byte) {
			mu.Lock()
			got = append(got, string(frame))
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		_ = relay.Publish(ctx, "gig:1", []byte("hello"))
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 2*time.Second, 50*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "hello", got[0])
}
