package model

import "time"

const EventJobFinished = "group_post.job_finished"

// JobFinishedEvent is dispatched once a job reaches a terminal status through the runner.
type JobFinishedEvent struct {
	Type           string      `json:"type"`
	RunID          string      `json:"runId"`
	JobID          string      `json:"jobId"`
	Owner          string      `json:"owner"`
	Status         JobStatus   `json:"status"`
	ContentKind    ContentKind `json:"postType"`
	TargetCount    int         `json:"totalGroups"`
	SuccessCount   int         `json:"successCount"`
	FailureCount   int         `json:"failureCount"`
	PointsRefunded int         `json:"pointsRefunded"`
	StartedAt      time.Time   `json:"startedAt"`
	FinishedAt     time.Time   `json:"finishedAt"`
}

// Elapsed is the wall time of the run.
func (e JobFinishedEvent) Elapsed() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}
