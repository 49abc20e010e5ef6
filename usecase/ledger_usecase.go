package usecase

import (
	"context"
	"fmt"
	"time"

	"autopost/domain/model"
	"autopost/domain/repository"
	"autopost/infrastructure/logger"
	"autopost/infrastructure/metrics"
)

type ILedgerUsecase interface {
	// Deduct charges amount points and returns the new balance.
	Deduct(ctx context.Context, owner string, amount int, description, jobID string) (int, error)
	// Refund credits amount points and returns the new balance. Not idempotent.
	Refund(ctx context.Context, owner string, amount int, reason, jobID string) (int, error)
	Balance(ctx context.Context, owner string) (int, error)
	Transactions(ctx context.Context, owner string, limit int) ([]*model.PointTransaction, error)
}

type ledgerUsecase struct {
	users        repository.IUser
	transactions repository.IPointTransaction
	now          func() time.Time
}

func NewLedgerUsecase(users repository.IUser, transactions repository.IPointTransaction) ILedgerUsecase {
	return &ledgerUsecase{users: users, transactions: transactions, now: time.Now}
}

func (u *ledgerUsecase) Deduct(ctx context.Context, owner string, amount int, description, jobID string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: deduct amount must be positive", model.ErrInvalidRequest)
	}
	user, err := u.users.DecrementBalance(ctx, owner, amount)
	if err != nil {
		return 0, err
	}
	u.appendTransaction(ctx, &model.PointTransaction{
		Owner:       owner,
		Amount:      -amount,
		Kind:        model.TransactionDebitForJob,
		Description: description,
		JobID:       jobID,
	})
	return user.Balance, nil
}

func (u *ledgerUsecase) Refund(ctx context.Context, owner string, amount int, reason, jobID string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: refund amount must be positive", model.ErrInvalidRequest)
	}
	user, err := u.users.IncrementBalance(ctx, owner, amount)
	if err != nil {
		return 0, err
	}
	metrics.PointsRefundedTotal.Add(float64(amount))
	u.appendTransaction(ctx, &model.PointTransaction{
		Owner:       owner,
		Amount:      amount,
		Kind:        model.TransactionRefund,
		Description: reason,
		JobID:       jobID,
	})
	return user.Balance, nil
}

func (u *ledgerUsecase) Balance(ctx context.Context, owner string) (int, error) {
	user, err := u.users.GetByID(ctx, owner)
	if err != nil {
		return 0, err
	}
	return user.Balance, nil
}

func (u *ledgerUsecase) Transactions(ctx context.Context, owner string, limit int) ([]*model.PointTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return u.transactions.ListByOwner(ctx, owner, limit)
}

// appendTransaction records the audit row. The balance change already happened, so a failed
// write is logged and swallowed.
func (u *ledgerUsecase) appendTransaction(ctx context.Context, tx *model.PointTransaction) {
	tx.Status = model.TransactionStatusCompleted
	tx.CreatedAt = u.now()
	if err := u.transactions.Create(ctx, tx); err != nil {
		metrics.RecordSideEffectFailure("transaction")
		logger.SideEffect().
			WithField("owner", tx.Owner).
			WithField("jobId", tx.JobID).
			WithField("amount", tx.Amount).
			WithField("error", err).
			Error("Error while recording point transaction")
	}
}
