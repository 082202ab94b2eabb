package repository

import (
	"context"
	"errors"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoBidRepo struct {
	col *mongo.Collection
}

func NewMongoBidRepo(col *mongo.Collection) *MongoBidRepo {
	return &MongoBidRepo{col: col}
}

func (r *MongoBidRepo) Create(ctx context.Context, b *models.Bid) error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *MongoBidRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Bid, error) {
	var b models.Bid
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *MongoBidRepo) ListByGig(ctx context.Context, gigID primitive.ObjectID) ([]*models.Bid, error) {
	return r.find(ctx, bson.M{"gig_id": gigID})
}

func (r *MongoBidRepo) ListByFreelancer(ctx context.Context, freelancerID primitive.ObjectID) ([]*models.Bid, error) {
	return r.find(ctx, bson.M{"freelancer_id": freelancerID})
}

func (r *MongoBidRepo) MarkHired(ctx context.Context, bidID primitive.ObjectID) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": bidID, "status": models.BidStatusPending},
		bson.M{"$set": bson.M{"status": models.BidStatusHired, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoBidRepo) RejectPending(ctx context.Context, gigID, exceptBidID primitive.ObjectID) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{
			"gig_id": gigID,
			"status": models.BidStatusPending,
			"_id":    bson.M{"$ne": exceptBidID},
		},
		bson.M{"$set": bson.M{"status": models.BidStatusRejected, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoBidRepo) find(ctx context.Context, filter bson.M) ([]*models.Bid, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Bid](ctx, cur)
}
