package repository

import (
	"context"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoMessageRepo struct {
	col *mongo.Collection
}

func NewMongoMessageRepo(col *mongo.Collection) *MongoMessageRepo {
	return &MongoMessageRepo{col: col}
}

func (r *MongoMessageRepo) Create(ctx context.Context, m *models.ChatMessage) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, m)
	return err
}

func (r *MongoMessageRepo) ListByGig(ctx context.Context, gigID primitive.ObjectID, limit int64) ([]*models.ChatMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// newest first so the limit keeps the latest messages, reversed below.
	// _id breaks ties between messages created in the same millisecond.
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.col.Find(ctx, bson.M{"gig_id": gigID}, opts)
	if err != nil {
		return nil, err
	}
	msgs, err := decodeAll[models.ChatMessage](ctx, cur)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
