package ws

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Client is one authenticated websocket connection as seen by the hub.
type Client struct {
	ID      string
	UserID  string
	limiter *rate.Limiter

	mu     sync.Mutex
	send   chan []byte
	closed bool
	done   chan struct{}

	rooms map[string]struct{} // guarded by Hub.mu
}

// NewClient builds a client with a send buffer of buf frames and an inbound
// limit of rps events per second (burst rps). rps <= 0 disables the limit.
func NewClient(userID string, buf int, rps float64) *Client {
	if buf <= 0 {
		buf = 256
	}
	lim := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &Client{
		ID:      uuid.NewString(),
		UserID:  userID,
		limiter: lim,
		send:    make(chan []byte, buf),
		done:    make(chan struct{}),
		rooms:   make(map[string]struct{}),
	}
}

// Enqueue hands a frame to the writer without blocking. It reports false when
// the client is closed or its buffer is full.
func (c *Client) Enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close closes the send channel exactly once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	close(c.done)
}

func (c *Client) Done() <-chan struct{} { return c.done }

// Allow consumes one token of the inbound rate limit.
func (c *Client) Allow() bool { return c.limiter.Allow() }
