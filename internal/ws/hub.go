package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/metrics"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Relay carries hub frames between instances.
type Relay interface {
	Publish(ctx context.Context, room string, frame []byte) error
	// Subscribe delivers every frame published by any instance until ctx is done.
	Subscribe(ctx context.Context, deliver func(frame []byte)) error
}

type relayFrame struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Data   json.RawMessage `json:"data"`
}

// Hub tracks rooms and the clients in them. Every client is in its private
// user room from Register until RemoveClient.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}

	relay      Relay
	instanceID string
	logger     *zap.SugaredLogger
}

// NewHub creates a hub. relay may be nil for a single instance.
func NewHub(relay Relay, logger *zap.SugaredLogger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		clients:    make(map[*Client]struct{}),
		relay:      relay,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.joinLocked(UserRoom(c.UserID), c)
	h.mu.Unlock()
	metrics.Connections.Inc()
}

// Join adds c to room. It is idempotent and reports false if c has already
// been removed from the hub.
func (h *Hub) Join(room string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	h.joinLocked(room, c)
	return true
}

func (h *Hub) joinLocked(room string, c *Client) {
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) InRoom(room string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

// RemoveClient drops c from every room it joined, including its user room.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.rooms = make(map[string]struct{})
	h.mu.Unlock()
	metrics.Connections.Dec()
}

// GetPresence reports whether userID has a connection on this instance.
func (h *Hub) GetPresence(_ context.Context, userID string) (*models.Presence, error) {
	n := int64(h.RoomSize(UserRoom(userID)))
	p := &models.Presence{UserID: userID, Status: models.PresenceOffline, Connections: n}
	if n > 0 {
		p.Status = models.PresenceOnline
	}
	return p, nil
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast delivers env to every local member of room and, with a relay,
// to the members on other instances.
func (h *Hub) Broadcast(ctx context.Context, room string, env *Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	h.deliverLocal(room, b)

	if h.relay == nil {
		return nil
	}
	frame, err := json.Marshal(relayFrame{Origin: h.instanceID, Room: room, Data: b})
	if err != nil {
		return err
	}
	return h.relay.Publish(ctx, room, frame)
}

func (h *Hub) SendToUser(ctx context.Context, userID string, env *Envelope) error {
	return h.Broadcast(ctx, UserRoom(userID), env)
}

// NotifyHired emits the hired event on the freelancer's private channel.
func (h *Hub) NotifyHired(ctx context.Context, freelancerID, gigID, gigTitle string) error {
	env, err := NewEnvelope(TypeHired, "", HiredPayload{GigID: gigID, GigTitle: gigTitle})
	if err != nil {
		return err
	}
	return h.SendToUser(ctx, freelancerID, env)
}

func (h *Hub) BroadcastMessage(ctx context.Context, gigID string, msg *models.ChatMessageView) error {
	env, err := NewEnvelope(TypeChatMessage, "", msg)
	if err != nil {
		return err
	}
	return h.Broadcast(ctx, GigRoom(gigID), env)
}

func (h *Hub) deliverLocal(room string, b []byte) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if c.Enqueue(b) {
			continue
		}
		select {
		case <-c.Done():
			// already closed by its connection; Serve unregisters it
			continue
		default:
		}
		// slow consumer: unregister
		h.logger.Warnw("dropping slow websocket client", "client_id", c.ID, "user_id", c.UserID, "room", room)
		metrics.SlowConsumers.Inc()
		h.RemoveClient(c)
		c.Close()
	}
}

// Run consumes frames from other instances until ctx is done. Without a relay
// it just waits.
func (h *Hub) Run(ctx context.Context) error {
	if h.relay == nil {
		<-ctx.Done()
		return nil
	}
	return h.relay.Subscribe(ctx, h.handleFrame)
}

func (h *Hub) handleFrame(frame []byte) {
	var f relayFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		h.logger.Warnw("malformed relay frame", "error", err)
		return
	}
	if f.Origin == h.instanceID {
		return
	}
	h.deliverLocal(f.Room, f.Data)
}
