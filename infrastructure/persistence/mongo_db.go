package persistence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	collectionGroupPosts   = "instant_group_posts"
	collectionUsers        = "users"
	collectionTransactions = "point_transactions"
	collectionUserActions  = "user_actions"
	collectionPostHistory  = "instant_group_post_history"
)

func NewMongoDb(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the lookup indexes and the TTL index that expires history entries.
// Safe to call at startup; existing indexes with the same definition are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database, historyTTL time.Duration) error {
	ownerNewestFirst := mongo.IndexModel{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}}

	if _, err := db.Collection(collectionGroupPosts).Indexes().CreateMany(ctx, []mongo.IndexModel{
		ownerNewestFirst,
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "completedAt", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("creating %s indexes failed: %w", collectionGroupPosts, err)
	}
	if _, err := db.Collection(collectionTransactions).Indexes().CreateOne(ctx, ownerNewestFirst); err != nil {
		return fmt.Errorf("creating %s indexes failed: %w", collectionTransactions, err)
	}
	if _, err := db.Collection(collectionUserActions).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}, {Key: "action", Value: 1}},
	}); err != nil {
		return fmt.Errorf("creating %s indexes failed: %w", collectionUserActions, err)
	}
	if _, err := db.Collection(collectionPostHistory).Indexes().CreateMany(ctx, []mongo.IndexModel{
		ownerNewestFirst,
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(historyTTL.Seconds())),
		},
	}); err != nil {
		return fmt.Errorf("creating %s indexes failed: %w", collectionPostHistory, err)
	}
	return nil
}

func newestFirst() *options.FindOptionsBuilder {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}
