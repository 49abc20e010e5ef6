package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autopost/domain/dto"
	"autopost/domain/model"
	"autopost/domain/repository"
	"autopost/infrastructure/cache"
	"autopost/infrastructure/logger"
	"autopost/infrastructure/metrics"

	"github.com/google/uuid"
)

type IGroupPostUsecase interface {
	Submit(ctx context.Context, caller model.Caller, req dto.CreateGroupPostRequest) (*model.GroupPostJob, error)
	List(ctx context.Context, caller model.Caller) ([]*model.GroupPostJob, error)
	Get(ctx context.Context, caller model.Caller, id string) (*model.GroupPostJob, error)
	// Cancel stops an active job, refunds its untried targets and deletes it. Finished jobs
	// are deleted without refund.
	Cancel(ctx context.Context, caller model.Caller, id string) (*dto.CancelGroupPostResponse, error)
	History(ctx context.Context, caller model.Caller, limit int) ([]*model.PostHistory, error)
}

type groupPostUsecase struct {
	jobs       repository.IGroupPost
	history    repository.IPostHistory
	ledger     ILedgerUsecase
	runner     IGroupPostRunner
	cancelBus  cache.ICancelBus
	maxTargets int
	now        func() time.Time
	newID      func() string
}

// NewGroupPostUsecase wires the job lifecycle. cancelBus may be nil on single-instance setups.
func NewGroupPostUsecase(
	jobs repository.IGroupPost,
	history repository.IPostHistory,
	ledger ILedgerUsecase,
	runner IGroupPostRunner,
	cancelBus cache.ICancelBus,
	maxTargets int,
) IGroupPostUsecase {
	return &groupPostUsecase{
		jobs:       jobs,
		history:    history,
		ledger:     ledger,
		runner:     runner,
		cancelBus:  cancelBus,
		maxTargets: maxTargets,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (u *groupPostUsecase) Submit(ctx context.Context, caller model.Caller, req dto.CreateGroupPostRequest) (*model.GroupPostJob, error) {
	targets := req.Targets()
	if !req.HasPostableTarget() {
		return nil, fmt.Errorf("%w: at least one group is required", model.ErrInvalidRequest)
	}
	if u.maxTargets > 0 && len(targets) > u.maxTargets {
		return nil, fmt.Errorf("%w: at most %d groups per job", model.ErrInvalidRequest, u.maxTargets)
	}
	content, err := req.Content()
	if err != nil {
		return nil, err
	}
	delay, err := req.InterPostDelay()
	if err != nil {
		return nil, err
	}

	now := u.now()
	job := &model.GroupPostJob{
		ID:                  u.newID(),
		Owner:               caller.UserID,
		Targets:             targets,
		TargetCount:         len(targets),
		Content:             content,
		RandomSuffixEnabled: req.EnableRandomCode,
		InterPostDelay:      delay,
		Credential:          req.AccessToken,
		Status:              model.JobStatusPending,
		Results:             []model.TargetResult{},
		PointsDeducted:      len(targets),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	description := fmt.Sprintf("Instant group post to %d groups", job.TargetCount)
	if _, err := u.ledger.Deduct(ctx, caller.UserID, job.PointsDeducted, description, job.ID); err != nil {
		return nil, err
	}

	if err := u.jobs.Create(ctx, job); err != nil {
		logger.GetLogger().WithField("owner", caller.UserID).WithField("error", err).Error("Error while creating group post job")
		reason := "Refund for group post job that could not be created"
		if _, rErr := u.ledger.Refund(context.WithoutCancel(ctx), caller.UserID, job.PointsDeducted, reason, job.ID); rErr != nil {
			logger.GetLogger().WithField("owner", caller.UserID).WithField("error", rErr).Error("Error while refunding uncreated job")
		}
		return nil, err
	}
	metrics.JobsSubmittedTotal.Inc()
	logger.GetLogger().
		WithField("jobId", job.ID).
		WithField("owner", job.Owner).
		WithField("targets", job.TargetCount).
		Info("Group post job submitted")

	u.runner.Start(job.ID)
	return job, nil
}

func (u *groupPostUsecase) List(ctx context.Context, caller model.Caller) ([]*model.GroupPostJob, error) {
	return u.jobs.ListByOwner(ctx, caller.UserID)
}

func (u *groupPostUsecase) Get(ctx context.Context, caller model.Caller, id string) (*model.GroupPostJob, error) {
	job, err := u.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Owner != caller.UserID {
		return nil, model.ErrJobNotFound
	}
	return job, nil
}

func (u *groupPostUsecase) Cancel(ctx context.Context, caller model.Caller, id string) (*dto.CancelGroupPostResponse, error) {
	job, err := u.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Owner != caller.UserID && !caller.IsAdmin() {
		return nil, model.ErrJobNotFound
	}
	lg := logger.GetLogger().WithField("jobId", id).WithField("caller", caller.UserID)

	// Once the stop starts, the transition, refund and delete must finish even if the client leaves.
	ctx = context.WithoutCancel(ctx)

	res := &dto.CancelGroupPostResponse{JobID: id, Status: job.Status}
	if job.Status.IsCancelable() {
		canceled, err := u.stopAndCancel(ctx, id)
		switch {
		case err == nil:
			res.Status = model.JobStatusCanceled
			if remaining := canceled.Remaining(); remaining > 0 && canceled.PointsDeducted > 0 {
				reason := fmt.Sprintf("Refund for %d untried group posts (job canceled)", remaining)
				if _, err := u.ledger.Refund(ctx, canceled.Owner, remaining, reason, id); err != nil {
					return nil, fmt.Errorf("refund canceled job: %w", err)
				}
				res.Refunded = remaining
			}
		case errors.Is(err, model.ErrJobNotActive):
			// Finished between the read and the transition; falls through to a plain delete.
			lg.Info("Job finished before it could be canceled")
		default:
			return nil, err
		}
	}

	if err := u.jobs.Delete(ctx, id); err != nil && !errors.Is(err, model.ErrJobNotFound) {
		return nil, err
	}
	res.Message = "Job deleted"
	if res.Status == model.JobStatusCanceled {
		res.Message = "Job canceled and deleted"
	}
	lg.WithField("refunded", res.Refunded).Info("Group post job deleted")
	return res, nil
}

// stopAndCancel stops the run wherever it executes before the status transition, so the
// counters read back are final.
func (u *groupPostUsecase) stopAndCancel(ctx context.Context, id string) (*model.GroupPostJob, error) {
	if !u.runner.Stop(ctx, id) && u.cancelBus != nil {
		if err := u.cancelBus.Publish(ctx, id); err != nil {
			logger.GetLogger().WithField("jobId", id).WithField("error", err).Warn("Error while broadcasting job cancel")
		}
	}
	return u.jobs.MarkCanceled(ctx, id)
}

func (u *groupPostUsecase) History(ctx context.Context, caller model.Caller, limit int) ([]*model.PostHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return u.history.ListByOwner(ctx, caller.UserID, limit)
}
