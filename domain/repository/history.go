package repository

import (
	"context"
	"time"

	"autopost/domain/model"
)

type IPostHistory interface {
	Create(ctx context.Context, entry *model.PostHistory) error
	ListByOwner(ctx context.Context, owner string, limit int) ([]*model.PostHistory, error)
	// DeleteOlderThan purges expired entries for stores without native expiry.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
