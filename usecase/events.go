package usecase

import (
	"context"
	"time"

	"autopost/domain/model"
	"autopost/domain/repository"
	"autopost/infrastructure/logger"
	"autopost/infrastructure/metrics"
)

const sinkTimeout = 10 * time.Second

// IJobEventSink receives finished-job events. Failures are logged by the dispatcher and never
// change the job outcome.
type IJobEventSink interface {
	Name() string
	Handle(ctx context.Context, event model.JobFinishedEvent) error
}

type EventDispatcher struct {
	sinks []IJobEventSink
}

func NewEventDispatcher(sinks ...IJobEventSink) *EventDispatcher {
	return &EventDispatcher{sinks: sinks}
}

func (d *EventDispatcher) Dispatch(ctx context.Context, event model.JobFinishedEvent) {
	base := context.WithoutCancel(ctx)
	for _, sink := range d.sinks {
		sinkCtx, cancel := context.WithTimeout(base, sinkTimeout)
		err := sink.Handle(sinkCtx, event)
		cancel()
		if err != nil {
			metrics.RecordSideEffectFailure(sink.Name())
			logger.SideEffect().
				WithField("sink", sink.Name()).
				WithField("jobId", event.JobID).
				WithField("error", err).
				Error("Job event sink failed")
		}
	}
}

type historySink struct {
	history repository.IPostHistory
}

// NewHistorySink writes one history entry per finished job.
func NewHistorySink(history repository.IPostHistory) IJobEventSink {
	return &historySink{history: history}
}

func (s *historySink) Name() string { return "history" }

func (s *historySink) Handle(ctx context.Context, event model.JobFinishedEvent) error {
	return s.history.Create(ctx, model.NewPostHistory(event))
}

type successAuditSink struct {
	audits repository.IAuditAction
}

// NewSuccessAuditSink records the achievement signal for jobs with at least one successful post.
func NewSuccessAuditSink(audits repository.IAuditAction) IJobEventSink {
	return &successAuditSink{audits: audits}
}

func (s *successAuditSink) Name() string { return "audit" }

func (s *successAuditSink) Handle(ctx context.Context, event model.JobFinishedEvent) error {
	if event.SuccessCount <= 0 {
		return nil
	}
	return s.audits.Create(ctx, &model.AuditAction{
		Owner:     event.Owner,
		Action:    model.ActionGroupPostSucceeded,
		Count:     event.SuccessCount,
		JobID:     event.JobID,
		CreatedAt: event.FinishedAt,
	})
}
