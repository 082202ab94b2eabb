package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/auth"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/metrics"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const localsUserID = "ws_user_id"

const (
	msgJoinFailed   = "Failed to join chat"
	msgSendFailed   = "Failed to send message"
	msgRateLimited  = "Too many requests"
	msgBadFrame     = "Invalid message format"
	msgUnknownEvent = "Unknown event type"
)

type ChatService interface {
	AuthorizeRoom(ctx context.Context, userID primitive.ObjectID, gigID string) (*models.Gig, error)
	SendMessage(ctx context.Context, senderID primitive.ObjectID, gigID, text string) (*models.ChatMessageView, error)
}

type Presence interface {
	AddConnection(ctx context.Context, userID, connID string) error
	RemoveConnection(ctx context.Context, userID, connID string) error
	Refresh(ctx context.Context, userID string) error
}

type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Conn is the part of a websocket connection the pumps use.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type Options struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBuffer     int
	RatePerSecond  float64
	EventTimeout   time.Duration
	// PresenceRefresh is how often a live connection extends its presence TTL.
	PresenceRefresh time.Duration
}

func (o *Options) defaults() {
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongWait {
		o.PingInterval = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 * 1024
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.EventTimeout <= 0 {
		o.EventTimeout = 10 * time.Second
	}
	if o.PresenceRefresh <= 0 {
		o.PresenceRefresh = time.Minute
	}
}

type Server struct {
	hub      *Hub
	chat     ChatService
	presence Presence
	tokens   TokenVerifier
	opts     Options
	logger   *zap.SugaredLogger
}

// NewServer builds the websocket endpoint. presence may be nil.
func NewServer(hub *Hub, chat ChatService, presence Presence, tokens TokenVerifier, opts Options, logger *zap.SugaredLogger) *Server {
	opts.defaults()
	return &Server{hub: hub, chat: chat, presence: presence, tokens: tokens, opts: opts, logger: logger}
}

// Upgrade authenticates the handshake. Missing or invalid tokens are refused
// with 401 before the protocol switch.
func (s *Server) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		t, err := auth.ParseBearerToken(h)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}
		token = t
	}
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not authenticated"})
	}
	uid, err := s.tokens.Verify(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}
	if _, err := primitive.ObjectIDFromHex(uid); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}
	c.Locals(localsUserID, uid)
	return c.Next()
}

func (s *Server) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, _ := conn.Locals(localsUserID).(string)
		s.Serve(conn, uid)
	})
}

// Serve runs one authenticated connection until it closes.
func (s *Server) Serve(conn Conn, userID string) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		_ = conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(userID, s.opts.SendBuffer, s.opts.RatePerSecond)
	s.hub.Register(c)
	s.logger.Infow("websocket connected", "client_id", c.ID, "user_id", userID)
	s.trackPresence(c, true)
	go s.refreshPresence(ctx, c)

	writerDone := make(chan struct{})
	go s.writePump(conn, c, writerDone)

	s.readPump(ctx, conn, c, oid)

	cancel()
	s.hub.RemoveClient(c)
	c.Close()
	<-writerDone
	s.trackPresence(c, false)
	s.logger.Infow("websocket disconnected", "client_id", c.ID, "user_id", userID)
}

func (s *Server) trackPresence(c *Client, online bool) {
	if s.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var err error
	if online {
		err = s.presence.AddConnection(ctx, c.UserID, c.ID)
	} else {
		err = s.presence.RemoveConnection(ctx, c.UserID, c.ID)
	}
	if err != nil {
		s.logger.Warnw("presence update failed", "user_id", c.UserID, "online", online, "error", err)
	}
}

func (s *Server) refreshPresence(ctx context.Context, c *Client) {
	if s.presence == nil {
		return
	}
	ticker := time.NewTicker(s.opts.PresenceRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.presence.Refresh(ctx, c.UserID); err != nil {
				s.logger.Debugw("presence refresh failed", "user_id", c.UserID, "error", err)
			}
		}
	}
}

func (s *Server) readPump(ctx context.Context, conn Conn, c *Client, userID primitive.ObjectID) {
	conn.SetReadLimit(s.opts.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debugw("websocket read failed", "client_id", c.ID, "error", err)
			}
			return
		}
		select {
		case <-c.Done():
			return
		default:
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			s.ack(c, "", false, msgBadFrame, nil)
			continue
		}
		s.Dispatch(ctx, c, userID, &env)
	}
}

func (s *Server) writePump(conn Conn, c *Client, done chan<- struct{}) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				_ = conn.Close()
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// Dispatch handles one inbound event and answers it with an ack carrying the
// event's ref. Events of one connection are handled in arrival order.
func (s *Server) Dispatch(ctx context.Context, c *Client, userID primitive.ObjectID, env *Envelope) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("websocket handler panicked", "type", env.Type, "client_id", c.ID, "panic", r)
			metrics.ChatEvents.WithLabelValues(env.Type, "panic").Inc()
			s.ack(c, env.Ref, false, failureMessage(env.Type), nil)
		}
	}()

	if !c.Allow() {
		metrics.ChatEvents.WithLabelValues(env.Type, "rate_limited").Inc()
		s.ack(c, env.Ref, false, msgRateLimited, nil)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.EventTimeout)
	defer cancel()

	switch env.Type {
	case TypeChatJoin:
		var p JoinPayload
		_ = json.Unmarshal(env.Payload, &p)
		gig, err := s.chat.AuthorizeRoom(ctx, userID, p.GigID)
		if err != nil {
			s.fail(c, env, err)
			return
		}
		if !s.hub.Join(GigRoom(gig.ID.Hex()), c) {
			return
		}
		metrics.ChatEvents.WithLabelValues(env.Type, "ok").Inc()
		s.ack(c, env.Ref, true, "", nil)

	case TypeChatSend:
		var p SendPayload
		_ = json.Unmarshal(env.Payload, &p)
		msg, err := s.chat.SendMessage(ctx, userID, p.GigID, p.Text)
		if err != nil {
			s.fail(c, env, err)
			return
		}
		metrics.ChatEvents.WithLabelValues(env.Type, "ok").Inc()
		s.ack(c, env.Ref, true, "", msg)

	default:
		metrics.ChatEvents.WithLabelValues("unknown", "rejected").Inc()
		s.ack(c, env.Ref, false, msgUnknownEvent, nil)
	}
}

func (s *Server) fail(c *Client, env *Envelope, err error) {
	if errors.Is(err, service.ErrInternal) || !isServiceError(err) {
		s.logger.Errorw("websocket event failed", "type", env.Type, "client_id", c.ID, "user_id", c.UserID, "error", err)
		metrics.ChatEvents.WithLabelValues(env.Type, "error").Inc()
	} else {
		metrics.ChatEvents.WithLabelValues(env.Type, "rejected").Inc()
	}
	s.ack(c, env.Ref, false, service.Message(err, failureMessage(env.Type)), nil)
}

func (s *Server) ack(c *Client, ref string, ok bool, message string, data any) {
	env, err := NewEnvelope(TypeAck, ref, Ack{OK: ok, Message: message, Data: data})
	if err != nil {
		s.logger.Errorw("encode ack", "error", err)
		return
	}
	b, err := json.Marshal(env)
	if err != nil {
		s.logger.Errorw("encode ack", "error", err)
		return
	}
	if !c.Enqueue(b) {
		s.logger.Debugw("ack dropped", "client_id", c.ID, "ref", ref)
	}
}

func failureMessage(typ string) string {
	switch typ {
	case TypeChatJoin:
		return msgJoinFailed
	case TypeChatSend:
		return msgSendFailed
	default:
		return fmt.Sprintf("Failed to handle %q", typ)
	}
}

func isServiceError(err error) bool {
	var se *service.Error
	return errors.As(err, &se)
}
