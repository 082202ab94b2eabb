package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type hiredCall struct {
	FreelancerID, GigID, GigTitle string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []hiredCall
	err   error
}

func (f *fakeNotifier) NotifyHired(_ context.Context, freelancerID, gigID, gigTitle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, hiredCall{freelancerID, gigID, gigTitle})
	return f.err
}

func (f *fakeNotifier) Calls() []hiredCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hiredCall(nil), f.calls...)
}

type broadcastCall struct {
	GigID string
	Msg   *models.ChatMessageView
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (f *fakeBroadcaster) BroadcastMessage(_ context.Context, gigID string, msg *models.ChatMessageView) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcastCall{gigID, msg})
	return nil
}

func (f *fakeBroadcaster) Calls() []broadcastCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]broadcastCall(nil), f.calls...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []any
}

func (f *fakePublisher) Publish(_ context.Context, _ string, ev any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return errors.New("broker down")
}

type fixture struct {
	repos       *repository.Repositories
	bg          *Background
	notifier    *fakeNotifier
	broadcaster *fakeBroadcaster
	publisher   *fakePublisher
	hire        *HireCoordinator
	chat        *ChatService
	gigs        *GigService
	bids        *BidService

	owner, f1, f2, outsider *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop().Sugar()
	fx := &fixture{
		repos:       memory.NewStore().Repositories(),
		bg:          NewBackground(log),
		notifier:    &fakeNotifier{},
		broadcaster: &fakeBroadcaster{},
		publisher:   &fakePublisher{},
	}
	fx.hire = NewHireCoordinator(fx.repos, fx.notifier, fx.publisher, fx.bg, HireOptions{NotifyTimeout: time.Second}, log)
	fx.chat = NewChatService(fx.repos, fx.broadcaster, fx.publisher, fx.bg, ChatOptions{}, log)
	fx.gigs = NewGigService(fx.repos, log)
	fx.bids = NewBidService(fx.repos, log)

	fx.owner = fx.user(t, "Owner", "owner@example.com")
	fx.f1 = fx.user(t, "Freelancer One", "f1@example.com")
	fx.f2 = fx.user(t, "Freelancer Two", "f2@example.com")
	fx.outsider = fx.user(t, "Outsider", "out@example.com")
	t.Cleanup(fx.bg.Wait)
	return fx
}

func (fx *fixture) user(t *testing.T, name, email string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, PasswordHash: "x"}
	require.NoError(t, fx.repos.Users.Create(context.Background(), u))
	return u
}

func (fx *fixture) gig(t *testing.T, title string) *models.GigView {
	t.Helper()
	g, err := fx.gigs.Create(context.Background(), fx.owner.ID, CreateGigInput{Title: title, Budget: 500})
	require.NoError(t, err)
	return g
}

func (fx *fixture) bid(t *testing.T, gigID primitive.ObjectID, freelancer *models.User) *models.BidView {
	t.Helper()
	b, err := fx.bids.Create(context.Background(), freelancer.ID, CreateBidInput{GigID: gigID.Hex(), Message: "I can do it"})
	require.NoError(t, err)
	return b
}
