package service

import (
	"context"
	"errors"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const defaultGigTitle = "a project"

// HireResult is the committed state of a hire.
type HireResult struct {
	Bid      *models.Bid
	Gig      *models.Gig
	Rejected int64
}

type HireOptions struct {
	NotifyTimeout time.Duration
}

// HireCoordinator assigns a gig to one bid and rejects the rest in a single
// transaction, then tells the hired freelancer.
type HireCoordinator struct {
	repos     *repository.Repositories
	notifier  Notifier
	publisher EventPublisher
	bg        *Background
	opts      HireOptions
	logger    *zap.SugaredLogger
}

func NewHireCoordinator(repos *repository.Repositories, notifier Notifier, publisher EventPublisher, bg *Background, opts HireOptions, logger *zap.SugaredLogger) *HireCoordinator {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}
	return &HireCoordinator{
		repos:     repos,
		notifier:  notifier,
		publisher: publisher,
		bg:        bg,
		opts:      opts,
		logger:    logger,
	}
}

func (h *HireCoordinator) Hire(ctx context.Context, bidID string, actingUserID primitive.ObjectID) (*HireResult, error) {
	bidOID, err := primitive.ObjectIDFromHex(bidID)
	if err != nil {
		return nil, ErrInvalidBidID
	}

	var res *HireResult
	err = h.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		res = nil

		bid, err := h.repos.Bids.FindByID(ctx, bidOID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBidNotFound
			}
			return err
		}
		gig, err := h.repos.Gigs.FindByID(ctx, bid.GigID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrGigNotFound
			}
			return err
		}
		if gig.OwnerID != actingUserID {
			return ErrNotGigOwner
		}
		if gig.Status != models.GigStatusOpen {
			return ErrGigNotOpen
		}
		if bid.Status != models.BidStatusPending {
			return ErrBidNotPending
		}

		ok, err := h.repos.Gigs.Assign(ctx, gig.ID, bid.FreelancerID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrGigNotOpen
		}
		ok, err = h.repos.Bids.MarkHired(ctx, bid.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrBidNotPending
		}
		rejected, err := h.repos.Bids.RejectPending(ctx, gig.ID, bid.ID)
		if err != nil {
			return err
		}

		if bid, err = h.repos.Bids.FindByID(ctx, bid.ID); err != nil {
			return err
		}
		if gig, err = h.repos.Gigs.FindByID(ctx, gig.ID); err != nil {
			return err
		}
		res = &HireResult{Bid: bid, Gig: gig, Rejected: rejected}
		return nil
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, err
		}
		h.logger.Errorw("hire transaction failed", "bid_id", bidID, "error", err)
		return nil, internal("hire failed", err)
	}

	h.logger.Infow("freelancer hired",
		"gig_id", res.Gig.ID.Hex(),
		"bid_id", res.Bid.ID.Hex(),
		"freelancer_id", res.Bid.FreelancerID.Hex(),
		"rejected", res.Rejected,
	)
	h.afterCommit(res)
	return res, nil
}

func (h *HireCoordinator) afterCommit(res *HireResult) {
	freelancerID := res.Bid.FreelancerID.Hex()
	gigID := res.Gig.ID.Hex()
	title := res.Gig.Title
	if title == "" {
		title = defaultGigTitle
	}

	h.bg.Go("notify hired", h.opts.NotifyTimeout, func(ctx context.Context) error {
		return h.notifier.NotifyHired(ctx, freelancerID, gigID, title)
	})

	ev := HiredEvent{
		Type:         EventGigHired,
		GigID:        gigID,
		GigTitle:     title,
		BidID:        res.Bid.ID.Hex(),
		OwnerID:      res.Gig.OwnerID.Hex(),
		FreelancerID: freelancerID,
		RejectedBids: res.Rejected,
		At:           res.Gig.UpdatedAt,
	}
	h.bg.Go("publish "+EventGigHired, h.opts.NotifyTimeout, func(ctx context.Context) error {
		return h.publisher.Publish(ctx, gigID, ev)
	})
}
