package model

import (
	"fmt"
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCanceled   JobStatus = "canceled"
)

// IsTerminal reports whether no further mutation of results may happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCanceled
}

// IsCancelable reports whether the owner may still cancel the job with a refund.
func (s JobStatus) IsCancelable() bool {
	return s == JobStatusPending || s == JobStatusProcessing
}

type ContentKind string

const (
	ContentKindText      ContentKind = "text"
	ContentKindImageLink ContentKind = "imageLink"
	ContentKindVideoLink ContentKind = "videoLink"
)

// ParseContentKind accepts the wire names used by the web client, including the short aliases.
func ParseContentKind(s string) (ContentKind, error) {
	switch strings.TrimSpace(s) {
	case "text":
		return ContentKindText, nil
	case "imageLink", "image":
		return ContentKindImageLink, nil
	case "videoLink", "video":
		return ContentKindVideoLink, nil
	}
	return "", fmt.Errorf("%w: unsupported postType %q", ErrInvalidRequest, s)
}

// PostContent is one of three payload shapes: plain text, text with an image link or
// text with a video link. Link is empty for text content.
type PostContent struct {
	Kind    ContentKind `json:"postType"     bson:"postType"`
	Message string      `json:"messageText"  bson:"messageText"`
	Link    string      `json:"link,omitempty" bson:"link,omitempty"`
}

func TextContent(message string) PostContent {
	return PostContent{Kind: ContentKindText, Message: message}
}

func ImageLinkContent(message, imageURL string) PostContent {
	return PostContent{Kind: ContentKindImageLink, Message: message, Link: imageURL}
}

func VideoLinkContent(message, videoURL string) PostContent {
	return PostContent{Kind: ContentKindVideoLink, Message: message, Link: videoURL}
}

func (c PostContent) Validate() error {
	if strings.TrimSpace(c.Message) == "" {
		return fmt.Errorf("%w: messageText is required", ErrInvalidRequest)
	}
	switch c.Kind {
	case ContentKindText:
		if c.Link != "" {
			return fmt.Errorf("%w: text posts cannot carry a link", ErrInvalidRequest)
		}
	case ContentKindImageLink:
		if strings.TrimSpace(c.Link) == "" {
			return fmt.Errorf("%w: imageUrl is required for image posts", ErrInvalidRequest)
		}
	case ContentKindVideoLink:
		if strings.TrimSpace(c.Link) == "" {
			return fmt.Errorf("%w: videoUrl is required for video posts", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unsupported postType %q", ErrInvalidRequest, c.Kind)
	}
	return nil
}

func (c PostContent) ImageURL() string {
	if c.Kind == ContentKindImageLink {
		return c.Link
	}
	return ""
}

func (c PostContent) VideoURL() string {
	if c.Kind == ContentKindVideoLink {
		return c.Link
	}
	return ""
}

// TargetResult is the outcome of one group post attempt.
type TargetResult struct {
	TargetID       string    `json:"groupId"           bson:"groupId"`
	Success        bool      `json:"success"           bson:"success"`
	ProviderPostID string    `json:"postId,omitempty"  bson:"postId,omitempty"`
	Error          string    `json:"error,omitempty"   bson:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"         bson:"timestamp"`
}

// GroupPostJob is one batch submission posting the same content into many groups.
type GroupPostJob struct {
	ID                  string         `json:"id"                  bson:"_id"`
	Owner               string         `json:"owner"               bson:"owner"`
	Targets             []string       `json:"groups"              bson:"groups"`
	TargetCount         int            `json:"totalGroups"         bson:"totalGroups"`
	Content             PostContent    `json:"content"             bson:"content"`
	RandomSuffixEnabled bool           `json:"enableRandomCode"    bson:"enableRandomCode"`
	InterPostDelay      int            `json:"delay"               bson:"delay"`
	Credential          string         `json:"-"                   bson:"accessToken"`
	Status              JobStatus      `json:"status"              bson:"status"`
	Results             []TargetResult `json:"results"             bson:"results"`
	SuccessCount        int            `json:"successCount"        bson:"successCount"`
	FailureCount        int            `json:"failureCount"        bson:"failureCount"`
	PointsDeducted      int            `json:"pointsDeducted"      bson:"pointsDeducted"`
	CreatedAt           time.Time      `json:"createdAt"           bson:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"           bson:"updatedAt"`
	StartedAt           *time.Time     `json:"startedAt,omitempty"   bson:"startedAt,omitempty"`
	CompletedAt         *time.Time     `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// Attempted is the number of targets with a recorded result.
func (j *GroupPostJob) Attempted() int { return j.SuccessCount + j.FailureCount }

// Remaining is the number of targets that have not been attempted yet.
func (j *GroupPostJob) Remaining() int {
	if r := j.TargetCount - j.Attempted(); r > 0 {
		return r
	}
	return 0
}

// Record appends a result and moves the matching counter with it.
func (j *GroupPostJob) Record(r TargetResult) {
	j.Results = append(j.Results, r)
	if r.Success {
		j.SuccessCount++
	} else {
		j.FailureCount++
	}
}

// Progress is the persisted snapshot of a run: results plus the counters derived from them.
type Progress struct {
	Results      []TargetResult
	SuccessCount int
	FailureCount int
}

func (j *GroupPostJob) Progress() Progress {
	results := make([]TargetResult, len(j.Results))
	copy(results, j.Results)
	return Progress{Results: results, SuccessCount: j.SuccessCount, FailureCount: j.FailureCount}
}
