package repository

import (
	"context"

	"autopost/domain/model"
)

type IPointTransaction interface {
	Create(ctx context.Context, tx *model.PointTransaction) error
	ListByOwner(ctx context.Context, owner string, limit int) ([]*model.PointTransaction, error)
}

type IAuditAction interface {
	Create(ctx context.Context, action *model.AuditAction) error
}
