package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestGigCreate_Validation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateGigInput
	}{
		{"empty title", CreateGigInput{Title: "  ", Budget: 10}},
		{"short title", CreateGigInput{Title: "ab", Budget: 10}},
		{"zero budget", CreateGigInput{Title: "Valid title", Budget: 0}},
		{"negative budget", CreateGigInput{Title: "Valid title", Budget: -5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.gigs.Create(ctx, fx.owner.ID, tc.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	g, err := fx.gigs.Create(ctx, fx.owner.ID, CreateGigInput{Title: " Write docs ", Budget: 42})
	require.NoError(t, err)
	assert.Equal(t, "Write docs", g.Title)
	assert.Equal(t, models.GigStatusOpen, g.Status)
	require.NotNil(t, g.Owner)
	assert.Equal(t, fx.owner.ID, g.Owner.ID)
}

func TestGigListOpen_Filters(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for _, in := range []CreateGigInput{
		{Title: "React dashboard", Budget: 300},
		{Title: "Go microservice", Budget: 900},
		{Title: "react native app", Budget: 1500},
	} {
		_, err := fx.gigs.Create(ctx, fx.owner.ID, in)
		require.NoError(t, err)
	}

	all, err := fx.gigs.ListOpen(ctx, repository.GigFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	react, err := fx.gigs.ListOpen(ctx, repository.GigFilter{Search: "REACT"})
	require.NoError(t, err)
	assert.Len(t, react, 2)

	lo, hi := 500.0, 1000.0
	mid, err := fx.gigs.ListOpen(ctx, repository.GigFilter{MinBudget: &lo, MaxBudget: &hi})
	require.NoError(t, err)
	require.Len(t, mid, 1)
	assert.Equal(t, "Go microservice", mid[0].Title)
}

func TestBidCreate_Rules(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	g := fx.gig(t, "Translate a site")

	neg := -1.0
	_, err := fx.bids.Create(ctx, fx.f1.ID, CreateBidInput{GigID: g.ID.Hex(), Message: "hi", Amount: &neg})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = fx.bids.Create(ctx, fx.f1.ID, CreateBidInput{GigID: "zzz", Message: "hi"})
	assert.ErrorIs(t, err, ErrInvalidGigID)

	_, err = fx.bids.Create(ctx, fx.f1.ID, CreateBidInput{GigID: primitive.NewObjectID().Hex(), Message: "hi"})
	assert.ErrorIs(t, err, ErrGigNotFound)

	_, err = fx.bids.Create(ctx, fx.owner.ID, CreateBidInput{GigID: g.ID.Hex(), Message: "mine"})
	assert.ErrorIs(t, err, ErrOwnGigBid)

	amount := 120.0
	b, err := fx.bids.Create(ctx, fx.f1.ID, CreateBidInput{GigID: g.ID.Hex(), Message: "hi", Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, b.Status)
	assert.Equal(t, fx.f1.Email, b.Freelancer.Email)

	_, err = fx.bids.Create(ctx, fx.f1.ID, CreateBidInput{GigID: g.ID.Hex(), Message: "again"})
	assert.ErrorIs(t, err, ErrDuplicateBid)

	// the rejected duplicate is not counted
	stored, err := fx.repos.Gigs.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.BidCount)

	_, err = fx.hire.Hire(ctx, b.ID.Hex(), fx.owner.ID)
	require.NoError(t, err)
	_, err = fx.bids.Create(ctx, fx.f2.ID, CreateBidInput{GigID: g.ID.Hex(), Message: "late"})
	assert.ErrorIs(t, err, ErrGigNotAcceptingBids)
}

// gigReadHook runs after once, right after the first gig read.
type gigReadHook struct {
	repository.GigRepository
	once  sync.Once
	after func()
}

func (h *gigReadHook) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Gig, error) {
	g, err := h.GigRepository.FindByID(ctx, id)
	h.once.Do(h.after)
	return g, err
}

func TestBidCreate_HireDuringCreateLeavesNoPendingBid(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	g := fx.gig(t, "Write API docs")
	b1 := fx.bid(t, g.ID, fx.f1)

	hired := make(chan error, 1)
	hook := &gigReadHook{GigRepository: fx.repos.Gigs, after: func() {
		go func() {
			_, err := fx.hire.Hire(ctx, b1.ID.Hex(), fx.owner.ID)
			hired <- err
		}()
		time.Sleep(50 * time.Millisecond)
	}}
	repos := *fx.repos
	repos.Gigs = hook
	bids := NewBidService(&repos, zap.NewNop().Sugar())

	_, err := bids.Create(ctx, fx.f2.ID, CreateBidInput{GigID: g.ID.Hex(), Message: "late"})
	if err != nil {
		assert.ErrorIs(t, err, ErrGigNotAcceptingBids)
	}
	require.NoError(t, <-hired)

	gig, err := fx.repos.Gigs.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusAssigned, gig.Status)

	list, err := fx.repos.Bids.ListByGig(ctx, g.ID)
	require.NoError(t, err)
	for _, b := range list {
		if b.ID == b1.ID {
			assert.Equal(t, models.BidStatusHired, b.Status)
			continue
		}
		assert.Equal(t, models.BidStatusRejected, b.Status, "bid %s", b.ID.Hex())
	}
}

func TestBidListings(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	g := fx.gig(t, "Illustrations")
	fx.bid(t, g.ID, fx.f1)
	fx.bid(t, g.ID, fx.f2)

	bids, err := fx.bids.ListForGig(ctx, fx.owner.ID, g.ID.Hex())
	require.NoError(t, err)
	require.Len(t, bids, 2)
	for _, b := range bids {
		assert.NotNil(t, b.Freelancer)
	}

	_, err = fx.bids.ListForGig(ctx, fx.f1.ID, g.ID.Hex())
	assert.ErrorIs(t, err, ErrNotBidViewer)

	mine, err := fx.bids.ListByFreelancer(ctx, fx.f2.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Gig)
	assert.Equal(t, "Illustrations", mine[0].Gig.Title)
}
