package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	gigsCollection     = "gigs"
	bidsCollection     = "bids"
	messagesCollection = "chat_messages"
	usersCollection    = "users"

	opTimeout = 5 * time.Second
)

func ConnectMongo(uri, dbName string, logger *zap.SugaredLogger) (*mongo.Database, *mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Errorf("MongoDB connection failed: %v", err)
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		logger.Errorf("MongoDB ping failed: %v", err)
		return nil, nil, err
	}

	logger.Info("MongoDB connected successfully")
	return client.Database(dbName), client, nil
}

// EnsureIndexes creates the indexes the repositories rely on, including the
// unique (gig, freelancer) bid index and the unique user email index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		gigsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
			{Keys: bson.D{{Key: "hired_freelancer_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		bidsCollection: {
			{Keys: bson.D{{Key: "gig_id", Value: 1}, {Key: "freelancer_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("gig_freelancer_unique")},
			{Keys: bson.D{{Key: "gig_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "freelancer_id", Value: 1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "gig_id", Value: 1}, {Key: "created_at", Value: 1}}, Options: options.Index().SetName("gig_created_idx")},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, idx := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// NewMongoRepositories wires every repository against db. Transactions need a
// replica set or sharded cluster.
func NewMongoRepositories(client *mongo.Client, db *mongo.Database, tx TxOptions, logger *zap.SugaredLogger) *Repositories {
	return &Repositories{
		Gigs:     NewMongoGigRepo(db.Collection(gigsCollection)),
		Bids:     NewMongoBidRepo(db.Collection(bidsCollection)),
		Messages: NewMongoMessageRepo(db.Collection(messagesCollection)),
		Users:    NewMongoUserRepo(db.Collection(usersCollection)),
		Tx:       NewMongoTxRunner(client, tx, logger),
	}
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]*T, error) {
	defer cur.Close(ctx)
	out := []*T{}
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}
