package persistence

import (
	"context"
	"time"

	"autopost/domain/model"
	"autopost/domain/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// PostHistoryRepository stores history entries in mongo. Expiry is handled by the TTL
// index created in EnsureIndexes.
type PostHistoryRepository struct {
	collection *mongo.Collection
}

func NewPostHistoryRepository(db *mongo.Database) repository.IPostHistory {
	return &PostHistoryRepository{collection: db.Collection(collectionPostHistory)}
}

func (r *PostHistoryRepository) Create(ctx context.Context, entry *model.PostHistory) error {
	if entry.ID == "" {
		entry.ID = bson.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

func (r *PostHistoryRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]*model.PostHistory, error) {
	opts := newestFirst()
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, err
	}
	list := make([]*model.PostHistory, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PostHistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
