package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxBidMessageChars = 2000

type CreateBidInput struct {
	GigID   string
	Message string
	Amount  *float64
}

type BidService struct {
	repos  *repository.Repositories
	logger *zap.SugaredLogger
}

func NewBidService(repos *repository.Repositories, logger *zap.SugaredLogger) *BidService {
	return &BidService{repos: repos, logger: logger}
}

func (s *BidService) Create(ctx context.Context, freelancerID primitive.ObjectID, in CreateBidInput) (*models.BidView, error) {
	msg := strings.TrimSpace(in.Message)
	if in.GigID == "" || msg == "" {
		return nil, Validation("Gig ID and message are required")
	}
	if len([]rune(msg)) > maxBidMessageChars {
		return nil, Validation("Message is too long")
	}
	if in.Amount != nil && *in.Amount < 0 {
		return nil, Validation("Bid amount cannot be negative")
	}
	gigID, err := primitive.ObjectIDFromHex(in.GigID)
	if err != nil {
		return nil, ErrInvalidGigID
	}

	var b *models.Bid
	err = s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		gig, err := s.repos.Gigs.FindByID(ctx, gigID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrGigNotFound
			}
			return err
		}
		if gig.Status != models.GigStatusOpen {
			return ErrGigNotAcceptingBids
		}
		if gig.OwnerID == freelancerID {
			return ErrOwnGigBid
		}

		// the gig write makes a hire committing at the same time conflict with us
		ok, err := s.repos.Gigs.AddBid(ctx, gigID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrGigNotAcceptingBids
		}

		now := time.Now().UTC()
		b = &models.Bid{
			GigID:        gigID,
			FreelancerID: freelancerID,
			Message:      msg,
			Amount:       in.Amount,
			Status:       models.BidStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repos.Bids.Create(ctx, b); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateBid
			}
			return err
		}
		return nil
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, internal("create bid", err)
	}
	s.logger.Infow("bid placed", "bid_id", b.ID.Hex(), "gig_id", gigID.Hex(), "freelancer_id", freelancerID.Hex())

	users, err := loadUsers(ctx, s.repos.Users, freelancerID)
	if err != nil {
		return nil, internal("load freelancer", err)
	}
	return &models.BidView{Bid: b, Freelancer: users.public(freelancerID)}, nil
}

// ListForGig returns every bid on a gig. Only the gig owner may see them.
func (s *BidService) ListForGig(ctx context.Context, actingUserID primitive.ObjectID, gigIDHex string) ([]*models.BidView, error) {
	gigID, err := primitive.ObjectIDFromHex(gigIDHex)
	if err != nil {
		return nil, ErrInvalidGigID
	}
	gig, err := s.repos.Gigs.FindByID(ctx, gigID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGigNotFound
		}
		return nil, internal("load gig", err)
	}
	if gig.OwnerID != actingUserID {
		return nil, ErrNotBidViewer
	}

	bids, err := s.repos.Bids.ListByGig(ctx, gigID)
	if err != nil {
		return nil, internal("list bids", err)
	}
	ids := make([]primitive.ObjectID, 0, len(bids))
	for _, b := range bids {
		ids = append(ids, b.FreelancerID)
	}
	users, err := loadUsers(ctx, s.repos.Users, ids...)
	if err != nil {
		return nil, internal("load freelancers", err)
	}
	out := make([]*models.BidView, 0, len(bids))
	for _, b := range bids {
		out = append(out, &models.BidView{Bid: b, Freelancer: users.public(b.FreelancerID)})
	}
	return out, nil
}

// ListByFreelancer returns the caller's bids with their gigs attached.
func (s *BidService) ListByFreelancer(ctx context.Context, freelancerID primitive.ObjectID) ([]*models.BidView, error) {
	bids, err := s.repos.Bids.ListByFreelancer(ctx, freelancerID)
	if err != nil {
		return nil, internal("list own bids", err)
	}
	out := make([]*models.BidView, 0, len(bids))
	for _, b := range bids {
		v := &models.BidView{Bid: b}
		gig, err := s.repos.Gigs.FindByID(ctx, b.GigID)
		switch {
		case err == nil:
			v.Gig = gig
		case !errors.Is(err, repository.ErrNotFound):
			return nil, internal("load bid gig", err)
		}
		out = append(out, v)
	}
	return out, nil
}
