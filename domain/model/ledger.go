package model

import "time"

type TransactionKind string

const (
	TransactionDebitForJob TransactionKind = "debit_for_job"
	TransactionRefund      TransactionKind = "refund"
)

const TransactionStatusCompleted = "completed"

// PointTransaction is an append-only audit row of a balance change. Amount is signed:
// negative for debits, positive for refunds.
type PointTransaction struct {
	ID          string          `json:"id"          bson:"_id"`
	Owner       string          `json:"owner"       bson:"owner"`
	Amount      int             `json:"amount"      bson:"amount"`
	Kind        TransactionKind `json:"kind"        bson:"kind"`
	Status      string          `json:"status"      bson:"status"`
	Description string          `json:"description" bson:"description"`
	JobID       string          `json:"jobId,omitempty" bson:"jobId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"   bson:"createdAt"`
}
