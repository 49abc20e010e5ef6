package persistence

import (
	"context"
	"errors"
	"time"

	"autopost/domain/model"
	"autopost/domain/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type userDocument struct {
	ID         bson.ObjectID `bson:"_id"`
	model.User `bson:",inline"`
}

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) repository.IUser {
	return &UserRepository{collection: db.Collection(collectionUsers)}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrUserNotFound
	}
	var doc userDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

// DecrementBalance applies the balance guard and the decrement in one conditional update.
func (r *UserRepository) DecrementBalance(ctx context.Context, id string, amount int) (*model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrUserNotFound
	}
	user, err := r.increment(ctx, decrementFilter(oid, amount), -amount)
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return user, err
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, model.ErrUserNotFound
	}
	return nil, model.ErrInsufficientBalance
}

func (r *UserRepository) IncrementBalance(ctx context.Context, id string, amount int) (*model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrUserNotFound
	}
	user, err := r.increment(ctx, bson.M{"_id": oid}, amount)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrUserNotFound
	}
	return user, err
}

func (r *UserRepository) increment(ctx context.Context, filter bson.M, delta int) (*model.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	if err := r.collection.FindOneAndUpdate(ctx, filter, balanceUpdate(delta, time.Now()), opts).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// decrementFilter only matches the user while the balance still covers amount.
func decrementFilter(oid bson.ObjectID, amount int) bson.M {
	return bson.M{"_id": oid, "balance": bson.M{"$gte": amount}}
}

func balanceUpdate(delta int, now time.Time) bson.M {
	return bson.M{
		"$inc": bson.M{"balance": delta},
		"$set": bson.M{"updatedAt": now},
	}
}

func (d *userDocument) toModel() *model.User {
	user := d.User
	user.ID = d.ID.Hex()
	return &user
}
