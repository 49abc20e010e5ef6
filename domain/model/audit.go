package model

import "time"

const (
	ActionGroupPostRefund    = "group_post_refund"
	ActionGroupPostSucceeded = "group_posts_succeeded"
)

// AuditAction is a side signal consumed by achievement features.
type AuditAction struct {
	ID        string    `json:"id"        bson:"_id"`
	Owner     string    `json:"owner"     bson:"owner"`
	Action    string    `json:"action"    bson:"action"`
	Count     int       `json:"count"     bson:"count"`
	JobID     string    `json:"jobId"     bson:"jobId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
