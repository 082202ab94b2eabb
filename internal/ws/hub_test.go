package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func recv(t *testing.T, c *Client) *Envelope {
	t.Helper()
	select {
	case b, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var env Envelope
		require.NoError(t, json.Unmarshal(b, &env))
		return &env
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case b := <-c.send:
		t.Fatalf("unexpected frame: %s", b)
	default:
	}
}

func TestHub_RoomsAndRemoval(t *testing.T) {
	h := NewHub(nil, zap.NewNop().Sugar())
	a := NewClient("alice", 4, 0)
	b := NewClient("bob", 4, 0)
	h.Register(a)
	h.Register(b)

	assert.Equal(t, 1, h.RoomSize(UserRoom("alice")))
	assert.True(t, h.Join(GigRoom("g1"), a))
	assert.True(t, h.Join(GigRoom("g1"), a))
	assert.True(t, h.Join(GigRoom("g1"), b))
	assert.Equal(t, 2, h.RoomSize(GigRoom("g1")))

	h.RemoveClient(a)
	assert.Equal(t, 1, h.RoomSize(GigRoom("g1")))
	assert.Equal(t, 0, h.RoomSize(UserRoom("alice")))
	assert.False(t, h.InRoom(GigRoom("g1"), a))
	assert.False(t, h.Join(GigRoom("g2"), a), "removed client cannot rejoin")
}

func TestHub_BroadcastScopedToRoom(t *testing.T) {
	h := NewHub(nil, zap.NewNop().Sugar())
	a := NewClient("alice", 4, 0)
	b := NewClient("bob", 4, 0)
	h.Register(a)
	h.Register(b)
	h.Join(GigRoom("g1"), a)

	env := &Envelope{Type: TypeChatMessage, Payload: json.RawMessage(`{"text":"hi"}`)}
	require.NoError(t, h.Broadcast(context.Background(), GigRoom("g1"), env))

	got := recv(t, a)
	assert.Equal(t, TypeChatMessage, got.Type)
	assertNoFrame(t, b)
}

func TestHub_NotifyHiredTargetsUser(t *testing.T) {
	h := NewHub(nil, zap.NewNop().Sugar())
	f1 := NewClient("f1", 4, 0)
	f1Tab := NewClient("f1", 4, 0)
	other := NewClient("f2", 4, 0)
	for _, c := range []*Client{f1, f1Tab, other} {
		h.Register(c)
	}

	require.NoError(t, h.NotifyHired(context.Background(), "f1", "g1", "Logo"))
	for _, c := range []*Client{f1, f1Tab} {
		env := recv(t, c)
		assert.Equal(t, TypeHired, env.Type)
		var p HiredPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		assert.Equal(t, HiredPayload{GigID: "g1", GigTitle: "Logo"}, p)
	}
	assertNoFrame(t, other)
}

func TestHub_SlowConsumerDropped(t *testing.T) {
	h := NewHub(nil, zap.NewNop().Sugar())
	slow := NewClient("slow", 1, 0)
	h.Register(slow)
	dropped := counterValue(t, metrics.SlowConsumers)

	env := &Envelope{Type: TypeHired}
	require.NoError(t, h.SendToUser(context.Background(), "slow", env))
	require.NoError(t, h.SendToUser(context.Background(), "slow", env))

	assert.Equal(t, 0, h.RoomSize(UserRoom("slow")))
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow client not closed")
	}
	assert.False(t, slow.Enqueue([]byte("x")))
	assert.Equal(t, dropped+1, counterValue(t, metrics.SlowConsumers))
}

func TestHub_ClosedClientIsNotASlowConsumer(t *testing.T) {
	h := NewHub(nil, zap.NewNop().Sugar())
	gone := NewClient("gone", 4, 0)
	live := NewClient("live", 4, 0)
	h.Register(gone)
	h.Register(live)
	room := GigRoom("g1")
	require.True(t, h.Join(room, gone))
	require.True(t, h.Join(room, live))

	// closed by its connection but not yet unregistered
	gone.Close()
	dropped := counterValue(t, metrics.SlowConsumers)

	require.NoError(t, h.Broadcast(context.Background(), room, &Envelope{Type: TypeChatMessage}))
	assert.Equal(t, TypeChatMessage, recv(t, live).Type)
	assert.Equal(t, dropped, counterValue(t, metrics.SlowConsumers))
	assert.True(t, h.InRoom(room, gone))

	h.RemoveClient(gone)
	assert.Equal(t, 1, h.RoomSize(room))
}

// memRelay is an in-process pub/sub shared by several hubs.
type memRelay struct {
	mu   sync.Mutex
	subs []func([]byte)
}

func (r *memRelay) Publish(_ context.Context, _ string, frame []byte) error {
	r.mu.Lock()
	subs := append([]func([]byte){}, r.subs...)
	r.mu.Unlock()
	for _, s := range subs {
		s(frame)
	}
	return nil
}

func (r *memRelay) Subscribe(ctx context.Context, deliver func([]byte)) error {
	r.mu.Lock()
	r.subs = append(r.subs, deliver)
	r.mu.Unlock()
	<-ctx.Done()
	return nil
}

func (r *memRelay) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func TestHub_RelayAcrossInstances(t *testing.T) {
	relay := &memRelay{}
	h1 := NewHub(relay, zap.NewNop().Sugar())
	h2 := NewHub(relay, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h1.Run(ctx) }()
	go func() { _ = h2.Run(ctx) }()
	require.Eventually(t, func() bool { return relay.count() == 2 }, time.Second, 5*time.Millisecond)

	local := NewClient("f1", 4, 0)
	remote := NewClient("f1", 4, 0)
	h1.Register(local)
	h2.Register(remote)

	require.NoError(t, h1.NotifyHired(ctx, "f1", "g1", "Logo"))

	assert.Equal(t, TypeHired, recv(t, local).Type)
	assert.Equal(t, TypeHired, recv(t, remote).Type)
	// own frames are not delivered twice
	assertNoFrame(t, local)
}
