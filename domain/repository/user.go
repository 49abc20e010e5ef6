package repository

import (
	"context"

	"autopost/domain/model"
)

// IUser owns the point balance. Balance changes are single atomic updates at the storage layer.
type IUser interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	// DecrementBalance subtracts amount only when the balance covers it. Returns
	// model.ErrInsufficientBalance or model.ErrUserNotFound.
	DecrementBalance(ctx context.Context, id string, amount int) (*model.User, error)
	IncrementBalance(ctx context.Context, id string, amount int) (*model.User, error)
}
