package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestHire_AssignsGigAndRejectsOthers(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	g := fx.gig(t, "Build a landing page")
	b1 := fx.bid(t, g.ID, fx.f1)
	b2 := fx.bid(t, g.ID, fx.f2)

	res, err := fx.hire.Hire(ctx, b1.ID.Hex(), fx.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusHired, res.Bid.Status)
	assert.Equal(t, models.GigStatusAssigned, res.Gig.Status)
	require.NotNil(t, res.Gig.HiredFreelancerID)
	assert.Equal(t, fx.f1.ID, *res.Gig.HiredFreelancerID)
	assert.EqualValues(t, 1, res.Rejected)

	stored, err := fx.repos.Bids.FindByID(ctx, b2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusRejected, stored.Status)

	// unchanged fields
	gig, err := fx.repos.Gigs.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Title, gig.Title)
	assert.Equal(t, g.Budget, gig.Budget)
	assert.Equal(t, fx.owner.ID, gig.OwnerID)

	fx.bg.Wait()
	assert.Equal(t, []hiredCall{{fx.f1.ID.Hex(), g.ID.Hex(), "Build a landing page"}}, fx.notifier.Calls())
}

func TestHire_WorkedExample(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	g := fx.gig(t, "Logo design")
	b1 := fx.bid(t, g.ID, fx.f1)
	b2 := fx.bid(t, g.ID, fx.f2)

	_, err := fx.hire.Hire(ctx, b1.ID.Hex(), fx.owner.ID)
	require.NoError(t, err)

	_, err = fx.hire.Hire(ctx, b2.ID.Hex(), fx.owner.ID)
	require.ErrorIs(t, err, ErrGigNotOpen)
	assert.ErrorIs(t, err, ErrConflict)

	// the owner and the hired freelancer can chat, the loser cannot
	_, err = fx.chat.AuthorizeRoom(ctx, fx.owner.ID, g.ID.Hex())
	assert.NoError(t, err)
	_, err = fx.chat.AuthorizeRoom(ctx, fx.f1.ID, g.ID.Hex())
	assert.NoError(t, err)
	_, err = fx.chat.AuthorizeRoom(ctx, fx.f2.ID, g.ID.Hex())
	assert.ErrorIs(t, err, ErrChatForbidden)
}

func TestHire_AssignedGigIsNotMutated(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	g := fx.gig(t, "Data entry")
	b1 := fx.bid(t, g.ID, fx.f1)
	b2 := fx.bid(t, g.ID, fx.f2)
	_, err := fx.hire.Hire(ctx, b1.ID.Hex(), fx.owner.ID)
	require.NoError(t, err)

	before, err := fx.repos.Gigs.FindByID(ctx, g.ID)
	require.NoError(t, err)

	_, err = fx.hire.Hire(ctx, b2.ID.Hex(), fx.owner.ID)
	require.ErrorIs(t, err, ErrGigNotOpen)

	after, err := fx.repos.Gigs.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	bid, err := fx.repos.Bids.FindByID(ctx, b2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusRejected, bid.Status)
}

func TestHire_ConcurrentHiresHaveOneWinner(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	g := fx.gig(t, "Mobile app")
	b1 := fx.bid(t, g.ID, fx.f1)
	b2 := fx.bid(t, g.ID, fx.f2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []primitive.ObjectID{b1.ID, b2.ID} {
		wg.Add(1)
		go func(i int, id primitive.ObjectID) {
			defer wg.Done()
			_, errs[i] = fx.hire.Hire(ctx, id.Hex(), fx.owner.ID)
		}(i, id)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	bids, err := fx.repos.Bids.ListByGig(ctx, g.ID)
	require.NoError(t, err)
	hired := 0
	for _, b := range bids {
		if b.Status == models.BidStatusHired {
			hired++
		} else {
			assert.Equal(t, models.BidStatusRejected, b.Status)
		}
	}
	assert.Equal(t, 1, hired)

	fx.bg.Wait()
	assert.Len(t, fx.notifier.Calls(), 1)
}

func TestHire_Errors(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	g := fx.gig(t, "Copywriting")
	b := fx.bid(t, g.ID, fx.f1)

	_, err := fx.hire.Hire(ctx, "not-an-id", fx.owner.ID)
	assert.ErrorIs(t, err, ErrInvalidBidID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = fx.hire.Hire(ctx, primitive.NewObjectID().Hex(), fx.owner.ID)
	assert.ErrorIs(t, err, ErrBidNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fx.hire.Hire(ctx, b.ID.Hex(), fx.f2.ID)
	assert.ErrorIs(t, err, ErrNotGigOwner)
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := fx.repos.Bids.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, stored.Status)
	assert.Empty(t, fx.notifier.Calls())
}

func TestHire_NotifyFailureDoesNotFailHire(t *testing.T) {
	fx := newFixture(t)
	fx.notifier.err = errors.New("socket gone")
	ctx := context.Background()

	g := fx.gig(t, "Video editing")
	b := fx.bid(t, g.ID, fx.f1)

	res, err := fx.hire.Hire(ctx, b.ID.Hex(), fx.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusHired, res.Bid.Status)

	assert.Eventually(t, func() bool { return len(fx.notifier.Calls()) == 1 }, time.Second, 10*time.Millisecond)

	gig, err := fx.repos.Gigs.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusAssigned, gig.Status)
}

func TestHire_PublishesEvent(t *testing.T) {
	fx := newFixture(t)
	g := fx.gig(t, "SEO audit")
	b := fx.bid(t, g.ID, fx.f1)
	fx.bid(t, g.ID, fx.f2)

	_, err := fx.hire.Hire(context.Background(), b.ID.Hex(), fx.owner.ID)
	require.NoError(t, err)
	fx.bg.Wait()

	fx.publisher.mu.Lock()
	defer fx.publisher.mu.Unlock()
	require.Len(t, fx.publisher.events, 1)
	ev, ok := fx.publisher.events[0].(HiredEvent)
	require.True(t, ok)
	assert.Equal(t, EventGigHired, ev.Type)
	assert.Equal(t, g.ID.Hex(), ev.GigID)
	assert.EqualValues(t, 1, ev.RejectedBids)
}
