package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"autopost/domain/model"
	"autopost/domain/repository"
	"autopost/infrastructure/logger"
	"autopost/infrastructure/metrics"
	"autopost/infrastructure/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrJobCanceled is the cancel cause of a run stopped by its owner.
	ErrJobCanceled = errors.New("group post job canceled")
	// ErrRunnerShutdown is the cancel cause of runs interrupted by process shutdown.
	ErrRunnerShutdown = errors.New("group post runner shutting down")

	errRunStopped = errors.New("run stopped")
	groupIDFormat = regexp.MustCompile(`^[0-9]{5,}$`)
)

const (
	randomCodeLength = 6
	defaultFlushSize = 5
)

type RunnerConfig struct {
	FlushEvery int
	CancelWait time.Duration
}

type IGroupPostRunner interface {
	// Start runs the job in the background. Calls for a job already running here are ignored.
	Start(jobID string)
	// Stop cancels the local run of the job and waits for it to exit. It reports whether the
	// job was running on this instance.
	Stop(ctx context.Context, jobID string) bool
	// Shutdown interrupts every run and waits for them to finish their bookkeeping.
	Shutdown(ctx context.Context) error
}

type run struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// runState is the in-memory side of one run.
type runState struct {
	job               *model.GroupPostJob
	runID             string
	startedAt         time.Time
	persistedFailures int
	refunded          int
	lg                *logrus.Entry
}

type GroupPostRunner struct {
	jobs   repository.IGroupPost
	ledger ILedgerUsecase
	poster repository.IGroupPoster
	audits repository.IAuditAction
	events *EventDispatcher
	cfg    RunnerConfig

	now        func() time.Time
	wait       func(ctx context.Context, d time.Duration) error
	randomCode func() string

	base       context.Context
	baseCancel context.CancelCauseFunc
	mu         sync.Mutex
	runs       map[string]*run
	wg         sync.WaitGroup
}

func NewGroupPostRunner(
	jobs repository.IGroupPost,
	ledger ILedgerUsecase,
	poster repository.IGroupPoster,
	audits repository.IAuditAction,
	events *EventDispatcher,
	cfg RunnerConfig,
) *GroupPostRunner {
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = defaultFlushSize
	}
	if cfg.CancelWait <= 0 {
		cfg.CancelWait = 10 * time.Second
	}
	base, cancel := context.WithCancelCause(context.Background())
	return &GroupPostRunner{
		jobs:       jobs,
		ledger:     ledger,
		poster:     poster,
		audits:     audits,
		events:     events,
		cfg:        cfg,
		now:        time.Now,
		wait:       sleepContext,
		randomCode: func() string { return utils.RandomCode(randomCodeLength) },
		base:       base,
		baseCancel: cancel,
		runs:       make(map[string]*run),
	}
}

func (r *GroupPostRunner) Start(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.base.Err() != nil {
		logger.GetLogger().WithField("jobId", jobID).Warn("Runner is shutting down, job not started")
		return
	}
	if _, ok := r.runs[jobID]; ok {
		return
	}

	ctx, cancel := context.WithCancelCause(r.base)
	rn := &run{cancel: cancel, done: make(chan struct{})}
	r.runs[jobID] = rn
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.runs, jobID)
			r.mu.Unlock()
			cancel(nil)
			close(rn.done)
		}()
		r.Run(ctx, jobID)
	}()
}

func (r *GroupPostRunner) Stop(ctx context.Context, jobID string) bool {
	r.mu.Lock()
	rn, ok := r.runs[jobID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	rn.cancel(ErrJobCanceled)
	timer := time.NewTimer(r.cfg.CancelWait)
	defer timer.Stop()
	select {
	case <-rn.done:
	case <-timer.C:
		logger.GetLogger().WithField("jobId", jobID).Warn("Timed out waiting for canceled run to exit")
	case <-ctx.Done():
	}
	return true
}

func (r *GroupPostRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.baseCancel(ErrRunnerShutdown)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes one job synchronously. A job that is not pending is left untouched.
func (r *GroupPostRunner) Run(ctx context.Context, jobID string) {
	lg := logger.GetLogger().WithField("jobId", jobID)
	// Store writes use a context that survives run cancellation.
	store := context.WithoutCancel(ctx)

	job, err := r.jobs.MarkProcessing(store, jobID, r.now())
	if err != nil {
		if !errors.Is(err, model.ErrJobNotActive) {
			lg.WithField("error", err).Error("Error while picking up group post job")
		}
		return
	}

	metrics.JobsRunning.Inc()
	defer metrics.JobsRunning.Dec()

	runID := uuid.NewString()
	st := &runState{job: job, runID: runID, startedAt: r.now(), lg: lg.WithField("runId", runID)}
	if job.StartedAt != nil {
		st.startedAt = *job.StartedAt
	}
	st.lg.WithField("targets", job.TargetCount).Info("Group post job started")

	defer func() {
		if p := recover(); p != nil {
			st.lg.WithField("panic", p).Error("Group post job panicked")
			r.fail(store, st, fmt.Errorf("panic: %v", p))
		}
	}()

	err = r.process(ctx, store, st)
	switch {
	case err == nil:
	case errors.Is(err, errRunStopped):
		r.stopped(store, st)
	default:
		r.fail(store, st, err)
	}
}

func (r *GroupPostRunner) process(ctx, store context.Context, st *runState) error {
	job := st.job
	content := job.Content
	if job.RandomSuffixEnabled {
		content.Message = content.Message + "\n\n" + r.randomCode()
	}

	for i, target := range job.Targets {
		if err := r.checkActive(ctx, store, st); err != nil {
			return err
		}

		result := r.postOne(ctx, target, content, job.Credential)
		job.Record(result)
		metrics.RecordTarget(result.Success)

		last := i == len(job.Targets)-1
		if (i+1)%r.cfg.FlushEvery == 0 || last {
			if err := r.flush(store, st); err != nil {
				return err
			}
		}
		if !last && job.InterPostDelay > 0 {
			if err := r.wait(ctx, time.Duration(job.InterPostDelay)*time.Second); err != nil {
				return r.interrupted(ctx, store, st)
			}
		}
	}

	if job.FailureCount > 0 && job.PointsDeducted > 0 {
		reason := fmt.Sprintf("Refund for %d failed group posts", job.FailureCount)
		if err := r.refund(store, st, job.FailureCount, reason); err != nil {
			return err
		}
	}

	finishedAt := r.now()
	if err := r.jobs.Complete(store, job.ID, job.Progress(), finishedAt); err != nil {
		if errors.Is(err, model.ErrJobNotActive) {
			st.lg.Info("Group post job was canceled before completion")
			return nil
		}
		return fmt.Errorf("complete job: %w", err)
	}
	job.Status = model.JobStatusCompleted
	metrics.JobsFinishedTotal.WithLabelValues(string(model.JobStatusCompleted)).Inc()
	st.lg.
		WithField("success", job.SuccessCount).
		WithField("failure", job.FailureCount).
		Info("Group post job completed")

	r.events.Dispatch(store, r.finishedEvent(st, finishedAt))
	return nil
}

// checkActive stops the loop when the run was canceled or the record left processing.
func (r *GroupPostRunner) checkActive(ctx, store context.Context, st *runState) error {
	if ctx.Err() != nil {
		return r.interrupted(ctx, store, st)
	}
	active, err := r.jobs.IsProcessing(store, st.job.ID)
	if err != nil {
		return fmt.Errorf("check job status: %w", err)
	}
	if !active {
		st.lg.Info("Group post job is no longer processing, stopping run")
		return errRunStopped
	}
	return nil
}

// interrupted decides what a canceled run context means: an owner cancel stops quietly after
// saving progress, anything else (shutdown) fails the job.
func (r *GroupPostRunner) interrupted(ctx, store context.Context, st *runState) error {
	cause := context.Cause(ctx)
	if !errors.Is(cause, ErrJobCanceled) {
		return fmt.Errorf("run interrupted: %w", cause)
	}
	st.lg.Info("Group post job canceled by owner")
	if err := r.flush(store, st); err != nil && !errors.Is(err, errRunStopped) {
		st.lg.WithField("error", err).Warn("Error while saving progress of canceled job")
	}
	return errRunStopped
}

func (r *GroupPostRunner) flush(store context.Context, st *runState) error {
	err := r.jobs.SaveProgress(store, st.job.ID, st.job.Progress())
	if errors.Is(err, model.ErrJobNotActive) {
		return errRunStopped
	}
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	st.persistedFailures = st.job.FailureCount
	return nil
}

func (r *GroupPostRunner) postOne(ctx context.Context, target string, content model.PostContent, accessToken string) (result model.TargetResult) {
	result.TargetID = target
	defer func() { result.Timestamp = r.now() }()

	if !groupIDFormat.MatchString(target) {
		result.Error = "invalid group id format"
		return result
	}

	out, err := r.poster.Post(ctx, target, content, accessToken)
	switch {
	case errors.Is(err, model.ErrProviderUnavailable):
		result.Error = err.Error()
	case err != nil:
		result.Error = fmt.Sprintf("network error: no response from Facebook (%v)", err)
	case !out.Success:
		result.Error = fmt.Sprintf("Facebook API error (status %d): %s", out.StatusCode, out.Error)
	case out.PostID == "":
		result.Error = "post succeeded but no post id was returned"
	default:
		result.Success = true
		result.ProviderPostID = out.PostID
	}
	return result
}

// stopped settles a run that ended because of a cancellation. Untried targets are refunded by
// the cancel path from the persisted counters, so the run only refunds the failures it had
// persisted.
func (r *GroupPostRunner) stopped(store context.Context, st *runState) {
	amount := st.persistedFailures - st.refunded
	if amount <= 0 || st.job.PointsDeducted <= 0 {
		return
	}
	reason := fmt.Sprintf("Refund for %d failed group posts (job canceled)", amount)
	if err := r.refund(store, st, amount, reason); err != nil {
		st.lg.WithField("error", err).Error("Error while refunding failures of canceled job")
	}
}

// fail marks the job failed with every target counted as failed and refunds whatever part of
// pointsDeducted was not refunded yet.
func (r *GroupPostRunner) fail(store context.Context, st *runState, cause error) {
	job := st.job
	st.lg.WithField("error", cause).Error("Group post job failed")

	finishedAt := r.now()
	progress := model.Progress{Results: job.Progress().Results, SuccessCount: 0, FailureCount: job.TargetCount}
	if _, err := r.jobs.Fail(store, job.ID, progress, finishedAt); err != nil {
		if errors.Is(err, model.ErrJobNotActive) {
			r.stopped(store, st)
			return
		}
		st.lg.WithField("error", err).Error("Error while marking group post job failed")
		return
	}
	job.Status = model.JobStatusFailed
	job.SuccessCount = 0
	job.FailureCount = job.TargetCount
	metrics.JobsFinishedTotal.WithLabelValues(string(model.JobStatusFailed)).Inc()

	if amount := job.PointsDeducted - st.refunded; amount > 0 {
		reason := fmt.Sprintf("Full refund for failed group post job (%d groups)", job.TargetCount)
		if err := r.refund(store, st, amount, reason); err != nil {
			st.lg.WithField("error", err).Error("Error while refunding failed group post job")
		}
	}

	r.events.Dispatch(store, r.finishedEvent(st, finishedAt))
}

func (r *GroupPostRunner) refund(store context.Context, st *runState, amount int, reason string) error {
	job := st.job
	if _, err := r.ledger.Refund(store, job.Owner, amount, reason, job.ID); err != nil {
		return fmt.Errorf("refund %d points: %w", amount, err)
	}
	st.refunded += amount

	action := &model.AuditAction{
		Owner:     job.Owner,
		Action:    model.ActionGroupPostRefund,
		Count:     amount,
		JobID:     job.ID,
		CreatedAt: r.now(),
	}
	if err := r.audits.Create(store, action); err != nil {
		metrics.RecordSideEffectFailure("audit")
		logger.SideEffect().WithField("jobId", job.ID).WithField("error", err).Error("Error while recording refund action")
	}
	return nil
}

func (r *GroupPostRunner) finishedEvent(st *runState, finishedAt time.Time) model.JobFinishedEvent {
	job := st.job
	return model.JobFinishedEvent{
		Type:           model.EventJobFinished,
		RunID:          st.runID,
		JobID:          job.ID,
		Owner:          job.Owner,
		Status:         job.Status,
		ContentKind:    job.Content.Kind,
		TargetCount:    job.TargetCount,
		SuccessCount:   job.SuccessCount,
		FailureCount:   job.FailureCount,
		PointsRefunded: st.refunded,
		StartedAt:      st.startedAt,
		FinishedAt:     finishedAt,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
