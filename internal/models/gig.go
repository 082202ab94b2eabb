package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GigStatus string

const (
	GigStatusOpen     GigStatus = "open"
	GigStatusAssigned GigStatus = "assigned"
)

// Gig is a posted job. It moves from open to assigned exactly once, when a bid is hired.
type Gig struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Title             string              `bson:"title" json:"title"`
	Description       string              `bson:"description,omitempty" json:"description,omitempty"`
	Budget            float64             `bson:"budget" json:"budget"`
	OwnerID           primitive.ObjectID  `bson:"owner_id" json:"ownerId"`
	HiredFreelancerID *primitive.ObjectID `bson:"hired_freelancer_id,omitempty" json:"hiredFreelancerId,omitempty"`
	Status            GigStatus           `bson:"status" json:"status"`
	BidCount          int64               `bson:"bid_count" json:"bidCount"`
	CreatedAt         time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time           `bson:"updated_at" json:"updatedAt"`
}

// ChatParticipant reports whether userID may use the gig's chat room:
// the gig must be assigned and userID must be the owner or the hired freelancer.
func (g *Gig) ChatParticipant(userID primitive.ObjectID) bool {
	if g.Status != GigStatusAssigned || g.HiredFreelancerID == nil {
		return false
	}
	return g.OwnerID == userID || *g.HiredFreelancerID == userID
}

// Clone returns a deep copy.
func (g *Gig) Clone() *Gig {
	if g == nil {
		return nil
	}
	cp := *g
	if g.HiredFreelancerID != nil {
		id := *g.HiredFreelancerID
		cp.HiredFreelancerID = &id
	}
	return &cp
}

// GigView is a gig with its owner and hired freelancer expanded for API responses.
type GigView struct {
	*Gig
	Owner           *PublicUser `json:"owner,omitempty"`
	HiredFreelancer *PublicUser `json:"hiredFreelancer,omitempty"`
}
