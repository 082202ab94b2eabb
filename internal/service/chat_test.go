package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func hiredGig(t *testing.T, fx *fixture) *models.GigView {
	t.Helper()
	g := fx.gig(t, "Chat gig")
	b := fx.bid(t, g.ID, fx.f1)
	_, err := fx.hire.Hire(context.Background(), b.ID.Hex(), fx.owner.ID)
	require.NoError(t, err)
	return g
}

func TestAuthorizeRoom(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	open := fx.gig(t, "Still open")
	fx.bid(t, open.ID, fx.f1)

	_, err := fx.chat.AuthorizeRoom(ctx, fx.owner.ID, "xyz")
	assert.ErrorIs(t, err, ErrInvalidChatGigID)

	_, err = fx.chat.AuthorizeRoom(ctx, fx.owner.ID, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrChatGigNotFound)

	_, err = fx.chat.AuthorizeRoom(ctx, fx.owner.ID, open.ID.Hex())
	assert.ErrorIs(t, err, ErrChatUnavailable)
	assert.Equal(t, "Gig not available for chat", Message(err, ""))

	g := hiredGig(t, fx)
	for _, u := range []*models.User{fx.owner, fx.f1} {
		gig, err := fx.chat.AuthorizeRoom(ctx, u.ID, g.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, g.ID, gig.ID)
	}
	_, err = fx.chat.AuthorizeRoom(ctx, fx.outsider.ID, g.ID.Hex())
	assert.ErrorIs(t, err, ErrChatForbidden)
	assert.Equal(t, "Not authorized", Message(err, ""))
}

func TestSendMessage_PersistsThenBroadcasts(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	g := hiredGig(t, fx)

	view, err := fx.chat.SendMessage(ctx, fx.f1.ID, g.ID.Hex(), "  hello there  ")
	require.NoError(t, err)
	assert.Equal(t, "hello there", view.Text)
	require.NotNil(t, view.Sender)
	assert.Equal(t, fx.f1.Name, view.Sender.Name)
	assert.Equal(t, fx.f1.Email, view.Sender.Email)

	calls := fx.broadcaster.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, g.ID.Hex(), calls[0].GigID)
	assert.Equal(t, view.ID, calls[0].Msg.ID)

	msgs, err := fx.repos.Messages.ListByGig(ctx, g.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, view.ID, msgs[0].ID)
}

func TestSendMessage_Rejections(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	g := hiredGig(t, fx)

	_, err := fx.chat.SendMessage(ctx, fx.owner.ID, g.ID.Hex(), "   \n\t ")
	assert.ErrorIs(t, err, ErrMessageRequired)

	_, err = fx.chat.SendMessage(ctx, fx.owner.ID, g.ID.Hex(), strings.Repeat("a", models.MaxChatMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = fx.chat.SendMessage(ctx, fx.outsider.ID, g.ID.Hex(), "let me in")
	assert.ErrorIs(t, err, ErrChatForbidden)

	_, err = fx.chat.SendMessage(ctx, fx.owner.ID, "bad", "hi")
	assert.ErrorIs(t, err, ErrInvalidChatGigID)

	msgs, err := fx.repos.Messages.ListByGig(ctx, g.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Empty(t, fx.broadcaster.Calls())
}

// jitterBroadcaster stalls each broadcast for a random moment.
type jitterBroadcaster struct {
	fakeBroadcaster
}

func (j *jitterBroadcaster) BroadcastMessage(ctx context.Context, gigID string, msg *models.ChatMessageView) error {
	time.Sleep(time.Duration(rand.Intn(300)) * time.Microsecond)
	return j.fakeBroadcaster.BroadcastMessage(ctx, gigID, msg)
}

func TestSendMessage_BroadcastOrderMatchesPersistOrder(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	g := hiredGig(t, fx)

	b := &jitterBroadcaster{}
	chat := NewChatService(fx.repos, b, nil, fx.bg, ChatOptions{}, zap.NewNop().Sugar())

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		sender := fx.owner.ID
		if i%2 == 1 {
			sender = fx.f1.ID
		}
		wg.Add(1)
		go func(i int, sender primitive.ObjectID) {
			defer wg.Done()
			_, err := chat.SendMessage(ctx, sender, g.ID.Hex(), fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
		}(i, sender)
	}
	wg.Wait()

	stored, err := fx.repos.Messages.ListByGig(ctx, g.ID, 0)
	require.NoError(t, err)
	calls := b.Calls()
	require.Len(t, calls, len(stored))
	for i := range stored {
		assert.Equal(t, stored[i].ID, calls[i].Msg.ID, "position %d", i)
	}
}

func TestSendMessage_ExactLimitAccepted(t *testing.T) {
	fx := newFixture(t)
	g := hiredGig(t, fx)

	_, err := fx.chat.SendMessage(context.Background(), fx.owner.ID, g.ID.Hex(), strings.Repeat("é", models.MaxChatMessageLength))
	assert.NoError(t, err)
}

func TestHistoryAndChatGigs(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	g := hiredGig(t, fx)

	for _, text := range []string{"one", "two", "three"} {
		_, err := fx.chat.SendMessage(ctx, fx.owner.ID, g.ID.Hex(), text)
		require.NoError(t, err)
	}

	hist, err := fx.chat.History(ctx, fx.f1.ID, g.ID.Hex())
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, "one", hist[0].Text)
	assert.Equal(t, "three", hist[2].Text)
	assert.Equal(t, fx.owner.Name, hist[0].Sender.Name)

	_, err = fx.chat.History(ctx, fx.outsider.ID, g.ID.Hex())
	assert.ErrorIs(t, err, ErrChatForbidden)

	gigs, err := fx.chat.ListChatGigs(ctx, fx.f1.ID)
	require.NoError(t, err)
	require.Len(t, gigs, 1)
	assert.Equal(t, g.ID, gigs[0].ID)
	require.NotNil(t, gigs[0].HiredFreelancer)
	assert.Equal(t, fx.f1.ID, gigs[0].HiredFreelancer.ID)

	gigs, err = fx.chat.ListChatGigs(ctx, fx.outsider.ID)
	require.NoError(t, err)
	assert.Empty(t, gigs)
}
