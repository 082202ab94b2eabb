package service

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 200
	sendStripes         = 64
)

// MessageBroadcaster relays a persisted chat message to everyone in the gig's room.
type MessageBroadcaster interface {
	BroadcastMessage(ctx context.Context, gigID string, msg *models.ChatMessageView) error
}

type ChatOptions struct {
	HistoryLimit  int64
	EventsTimeout time.Duration
}

type ChatService struct {
	repos       *repository.Repositories
	broadcaster MessageBroadcaster
	publisher   EventPublisher
	bg          *Background
	opts        ChatOptions
	logger      *zap.SugaredLogger

	// sendMu keeps a room's broadcasts in persist order.
	sendMu [sendStripes]sync.Mutex
}

func NewChatService(repos *repository.Repositories, broadcaster MessageBroadcaster, publisher EventPublisher, bg *Background, opts ChatOptions, logger *zap.SugaredLogger) *ChatService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.EventsTimeout <= 0 {
		opts.EventsTimeout = 5 * time.Second
	}
	return &ChatService{
		repos:       repos,
		broadcaster: broadcaster,
		publisher:   publisher,
		bg:          bg,
		opts:        opts,
		logger:      logger,
	}
}

// SetBroadcaster wires the room broadcaster after construction; the hub and
// the chat service depend on each other.
func (s *ChatService) SetBroadcaster(b MessageBroadcaster) {
	s.broadcaster = b
}

// AuthorizeRoom checks that userID may use the chat room of gigIDHex and
// returns the gig. It is evaluated against the current gig state every time.
func (s *ChatService) AuthorizeRoom(ctx context.Context, userID primitive.ObjectID, gigIDHex string) (*models.Gig, error) {
	gigID, err := primitive.ObjectIDFromHex(gigIDHex)
	if err != nil {
		return nil, ErrInvalidChatGigID
	}
	return s.authorize(ctx, userID, gigID)
}

func (s *ChatService) authorize(ctx context.Context, userID, gigID primitive.ObjectID) (*models.Gig, error) {
	gig, err := s.repos.Gigs.FindByID(ctx, gigID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChatGigNotFound
		}
		return nil, internal("load gig", err)
	}
	if gig.Status != models.GigStatusAssigned || gig.HiredFreelancerID == nil {
		return nil, ErrChatUnavailable
	}
	if !gig.ChatParticipant(userID) {
		return nil, ErrChatForbidden
	}
	return gig, nil
}

// SendMessage persists text as a message from senderID and then relays it to
// the gig's room. A relay failure is logged; the message stays persisted.
func (s *ChatService) SendMessage(ctx context.Context, senderID primitive.ObjectID, gigIDHex, text string) (*models.ChatMessageView, error) {
	gigID, err := primitive.ObjectIDFromHex(gigIDHex)
	if err != nil {
		return nil, ErrInvalidChatGigID
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMessageRequired
	}
	if utf8.RuneCountInString(text) > models.MaxChatMessageLength {
		return nil, ErrMessageTooLong
	}
	if _, err := s.authorize(ctx, senderID, gigID); err != nil {
		return nil, err
	}

	users, err := loadUsers(ctx, s.repos.Users, senderID)
	if err != nil {
		return nil, internal("load sender", err)
	}

	msg := &models.ChatMessage{
		GigID:    gigID,
		SenderID: senderID,
		Text:     text,
	}
	view := &models.ChatMessageView{ChatMessage: msg, Sender: users.public(senderID)}

	mu := s.roomLock(gigID)
	mu.Lock()
	msg.CreatedAt = time.Now().UTC()
	if err := s.repos.Messages.Create(ctx, msg); err != nil {
		mu.Unlock()
		return nil, internal("persist message", err)
	}
	if s.broadcaster != nil {
		if err := s.broadcaster.BroadcastMessage(ctx, gigID.Hex(), view); err != nil {
			s.logger.Warnw("broadcast chat message failed", "gig_id", gigID.Hex(), "message_id", msg.ID.Hex(), "error", err)
		}
	}
	mu.Unlock()

	ev := ChatMessageEvent{
		Type:      EventChatMessage,
		MessageID: msg.ID.Hex(),
		GigID:     gigID.Hex(),
		SenderID:  senderID.Hex(),
		At:        msg.CreatedAt,
	}
	s.bg.Go("publish "+EventChatMessage, s.opts.EventsTimeout, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, ev.GigID, ev)
	})
	return view, nil
}

func (s *ChatService) roomLock(gigID primitive.ObjectID) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write(gigID[:])
	return &s.sendMu[h.Sum32()%sendStripes]
}

// History returns the latest messages of a gig's chat, oldest first.
func (s *ChatService) History(ctx context.Context, userID primitive.ObjectID, gigIDHex string) ([]*models.ChatMessageView, error) {
	gig, err := s.AuthorizeRoom(ctx, userID, gigIDHex)
	if err != nil {
		return nil, err
	}
	msgs, err := s.repos.Messages.ListByGig(ctx, gig.ID, s.opts.HistoryLimit)
	if err != nil {
		return nil, internal("list messages", err)
	}
	users, err := loadUsers(ctx, s.repos.Users, gigUserIDs([]*models.Gig{gig})...)
	if err != nil {
		return nil, internal("load chat users", err)
	}
	out := make([]*models.ChatMessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, &models.ChatMessageView{ChatMessage: m, Sender: users.public(m.SenderID)})
	}
	return out, nil
}

// ListChatGigs returns assigned gigs where userID is a chat participant.
func (s *ChatService) ListChatGigs(ctx context.Context, userID primitive.ObjectID) ([]*models.GigView, error) {
	gigs, err := s.repos.Gigs.ListAssignedTo(ctx, userID)
	if err != nil {
		return nil, internal("list chat gigs", err)
	}
	users, err := loadUsers(ctx, s.repos.Users, gigUserIDs(gigs)...)
	if err != nil {
		return nil, internal("load chat users", err)
	}
	out := make([]*models.GigView, 0, len(gigs))
	for _, g := range gigs {
		out = append(out, users.gigView(g))
	}
	return out, nil
}
