package repository

import (
	"context"
	"time"

	"autopost/domain/model"
)

// IGroupPost persists group post jobs. Status transitions are conditional updates: when the
// job is not in the expected state (or is gone) they return model.ErrJobNotActive.
type IGroupPost interface {
	Create(ctx context.Context, job *model.GroupPostJob) error
	// GetByID returns model.ErrJobNotFound when the job does not exist.
	GetByID(ctx context.Context, id string) (*model.GroupPostJob, error)
	// ListByOwner returns the owner's jobs newest first.
	ListByOwner(ctx context.Context, owner string) ([]*model.GroupPostJob, error)

	// MarkProcessing moves a pending job to processing and returns it.
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) (*model.GroupPostJob, error)
	// IsProcessing reports whether the job still exists and is processing.
	IsProcessing(ctx context.Context, id string) (bool, error)
	// SaveProgress writes results and counters of a processing job.
	SaveProgress(ctx context.Context, id string, progress model.Progress) error
	// Complete moves a processing job to completed with its final results.
	Complete(ctx context.Context, id string, progress model.Progress, completedAt time.Time) error
	// Fail moves a pending or processing job to failed with every target counted as failed.
	Fail(ctx context.Context, id string, progress model.Progress, completedAt time.Time) (*model.GroupPostJob, error)
	// MarkCanceled moves a pending or processing job to canceled and returns the updated job.
	MarkCanceled(ctx context.Context, id string) (*model.GroupPostJob, error)

	Delete(ctx context.Context, id string) error
	// DeleteFinishedBefore removes completed and failed jobs whose completedAt is before cutoff.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
