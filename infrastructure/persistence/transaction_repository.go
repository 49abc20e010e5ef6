package persistence

import (
	"context"
	"time"

	"autopost/domain/model"
	"autopost/domain/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type PointTransactionRepository struct {
	collection *mongo.Collection
}

func NewPointTransactionRepository(db *mongo.Database) repository.IPointTransaction {
	return &PointTransactionRepository{collection: db.Collection(collectionTransactions)}
}

func (r *PointTransactionRepository) Create(ctx context.Context, tx *model.PointTransaction) error {
	if tx.ID == "" {
		tx.ID = bson.NewObjectID().Hex()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, tx)
	return err
}

func (r *PointTransactionRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]*model.PointTransaction, error) {
	opts := newestFirst()
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, err
	}
	list := make([]*model.PointTransaction, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

type AuditActionRepository struct {
	collection *mongo.Collection
}

func NewAuditActionRepository(db *mongo.Database) repository.IAuditAction {
	return &AuditActionRepository{collection: db.Collection(collectionUserActions)}
}

func (r *AuditActionRepository) Create(ctx context.Context, action *model.AuditAction) error {
	if action.ID == "" {
		action.ID = bson.NewObjectID().Hex()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, action)
	return err
}
