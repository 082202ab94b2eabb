package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusHired    BidStatus = "hired"
	BidStatusRejected BidStatus = "rejected"
)

// Bid is a freelancer's proposal against a gig. One per (gig, freelancer).
type Bid struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	GigID        primitive.ObjectID `bson:"gig_id" json:"gigId"`
	FreelancerID primitive.ObjectID `bson:"freelancer_id" json:"freelancerId"`
	Message      string             `bson:"message" json:"message"`
	Amount       *float64           `bson:"amount,omitempty" json:"amount,omitempty"`
	Status       BidStatus          `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (b *Bid) Clone() *Bid {
	if b == nil {
		return nil
	}
	cp := *b
	if b.Amount != nil {
		a := *b.Amount
		cp.Amount = &a
	}
	return &cp
}

type BidView struct {
	*Bid
	Freelancer *PublicUser `json:"freelancer,omitempty"`
	Gig        *Gig        `json:"gig,omitempty"`
}
