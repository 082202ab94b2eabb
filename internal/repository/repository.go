package repository

import (
	"context"
	"errors"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// GigFilter narrows the open gig listing. Nil bounds are ignored.
type GigFilter struct {
	Search    string
	MinBudget *float64
	MaxBudget *float64
}

type GigRepository interface {
	Create(ctx context.Context, g *models.Gig) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Gig, error)
	ListOpen(ctx context.Context, f GigFilter) ([]*models.Gig, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Gig, error)
	// ListAssignedTo returns assigned gigs where userID is the owner or the hired freelancer.
	ListAssignedTo(ctx context.Context, userID primitive.ObjectID) ([]*models.Gig, error)
	// AddBid counts a new bid against an open gig. It reports false when the gig
	// was not open. Inside a transaction it also makes a concurrent Assign conflict.
	AddBid(ctx context.Context, gigID primitive.ObjectID) (bool, error)
	// Assign moves an open gig to assigned. It reports false when the gig was not open.
	Assign(ctx context.Context, gigID, freelancerID primitive.ObjectID) (bool, error)
}

type BidRepository interface {
	// Create returns ErrDuplicate when the freelancer already bid on the gig.
	Create(ctx context.Context, b *models.Bid) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Bid, error)
	ListByGig(ctx context.Context, gigID primitive.ObjectID) ([]*models.Bid, error)
	ListByFreelancer(ctx context.Context, freelancerID primitive.ObjectID) ([]*models.Bid, error)
	// MarkHired moves a pending bid to hired. It reports false when the bid was not pending.
	MarkHired(ctx context.Context, bidID primitive.ObjectID) (bool, error)
	// RejectPending rejects every pending bid on gigID except exceptBidID.
	RejectPending(ctx context.Context, gigID, exceptBidID primitive.ObjectID) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *models.ChatMessage) error
	// ListByGig returns the latest limit messages, oldest first. limit <= 0 means all.
	ListByGig(ctx context.Context, gigID primitive.ObjectID, limit int64) ([]*models.ChatMessage, error)
}

type UserRepository interface {
	// Create returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error)
}

// TxRunner runs fn as one atomic unit. fn must use the context it is given for
// every repository call that belongs to the unit. The unit commits only when fn
// returns nil; any error or panic rolls it back.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Repositories struct {
	Gigs     GigRepository
	Bids     BidRepository
	Messages MessageRepository
	Users    UserRepository
	Tx       TxRunner
}
