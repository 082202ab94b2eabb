package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoGigRepo struct {
	col *mongo.Collection
}

func NewMongoGigRepo(col *mongo.Collection) *MongoGigRepo {
	return &MongoGigRepo{col: col}
}

func (r *MongoGigRepo) Create(ctx context.Context, g *models.Gig) error {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, g)
	return err
}

func (r *MongoGigRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Gig, error) {
	var g models.Gig
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *MongoGigRepo) ListOpen(ctx context.Context, f GigFilter) ([]*models.Gig, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"status": models.GigStatusOpen}
	if f.Search != "" {
		filter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}
	budget := bson.M{}
	if f.MinBudget != nil {
		budget["$gte"] = *f.MinBudget
	}
	if f.MaxBudget != nil {
		budget["$lte"] = *f.MaxBudget
	}
	if len(budget) > 0 {
		filter["budget"] = budget
	}
	return r.find(ctx, filter, bson.D{{Key: "created_at", Value: -1}})
}

func (r *MongoGigRepo) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Gig, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return r.find(ctx, bson.M{"owner_id": ownerID}, bson.D{{Key: "created_at", Value: -1}})
}

func (r *MongoGigRepo) ListAssignedTo(ctx context.Context, userID primitive.ObjectID) ([]*models.Gig, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	filter := bson.M{
		"status": models.GigStatusAssigned,
		"$or": []bson.M{
			{"owner_id": userID},
			{"hired_freelancer_id": userID},
		},
	}
	return r.find(ctx, filter, bson.D{{Key: "updated_at", Value: -1}})
}

func (r *MongoGigRepo) AddBid(ctx context.Context, gigID primitive.ObjectID) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": gigID, "status": models.GigStatusOpen},
		bson.M{
			"$inc": bson.M{"bid_count": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoGigRepo) Assign(ctx context.Context, gigID, freelancerID primitive.ObjectID) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": gigID, "status": models.GigStatusOpen},
		bson.M{"$set": bson.M{
			"status":              models.GigStatusAssigned,
			"hired_freelancer_id": freelancerID,
			"updated_at":          time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoGigRepo) find(ctx context.Context, filter bson.M, sort bson.D) ([]*models.Gig, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Gig](ctx, cur)
}
