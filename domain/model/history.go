package model

import (
	"fmt"
	"time"
)

// PostHistory summarizes one finished job for reporting. Entries expire after a fixed window.
type PostHistory struct {
	ID                      string      `json:"id"                      bson:"_id"`
	JobID                   string      `json:"jobId"                   bson:"jobId"`
	Owner                   string      `json:"owner"                   bson:"owner"`
	ContentKind             ContentKind `json:"postType"                bson:"postType"`
	TargetCount             int         `json:"totalGroups"             bson:"totalGroups"`
	SuccessCount            int         `json:"successCount"            bson:"successCount"`
	FailureCount            int         `json:"failureCount"            bson:"failureCount"`
	TotalElapsedSeconds     int64       `json:"totalElapsedSeconds"     bson:"totalElapsedSeconds"`
	SuccessRate             string      `json:"successRate"             bson:"successRate"`
	AverageSecondsPerTarget string      `json:"averageSecondsPerTarget" bson:"averageSecondsPerTarget"`
	CreatedAt               time.Time   `json:"createdAt"               bson:"createdAt"`
}

// NewPostHistory derives the summary row of a finished job.
func NewPostHistory(e JobFinishedEvent) *PostHistory {
	elapsed := e.Elapsed()
	rate := 0.0
	avg := 0.0
	if e.TargetCount > 0 {
		rate = float64(e.SuccessCount) / float64(e.TargetCount) * 100
		avg = elapsed.Seconds() / float64(e.TargetCount)
	}
	return &PostHistory{
		JobID:                   e.JobID,
		Owner:                   e.Owner,
		ContentKind:             e.ContentKind,
		TargetCount:             e.TargetCount,
		SuccessCount:            e.SuccessCount,
		FailureCount:            e.FailureCount,
		TotalElapsedSeconds:     int64(elapsed.Seconds()),
		SuccessRate:             fmt.Sprintf("%.1f", rate),
		AverageSecondsPerTarget: fmt.Sprintf("%.2f", avg),
		CreatedAt:               e.FinishedAt,
	}
}
