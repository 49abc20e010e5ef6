package dto

import (
	"fmt"
	"strings"

	"autopost/domain/model"
)

const MaxInterPostDelay = 60

type CreateGroupPostRequest struct {
	Groups           []string `json:"groups"           binding:"required,min=1"`
	PostType         string   `json:"postType"         binding:"required"`
	MessageText      string   `json:"messageText"      binding:"required"`
	ImageURL         string   `json:"imageUrl"`
	VideoURL         string   `json:"videoUrl"`
	EnableRandomCode bool     `json:"enableRandomCode"`
	AccessToken      string   `json:"accessToken"      binding:"required"`
	EnableDelay      bool     `json:"enableDelay"`
	Delay            int      `json:"delay"`
}

// Content builds the tagged payload for the requested post type.
func (r CreateGroupPostRequest) Content() (model.PostContent, error) {
	kind, err := model.ParseContentKind(r.PostType)
	if err != nil {
		return model.PostContent{}, err
	}
	var content model.PostContent
	switch kind {
	case model.ContentKindImageLink:
		content = model.ImageLinkContent(r.MessageText, strings.TrimSpace(r.ImageURL))
	case model.ContentKindVideoLink:
		content = model.VideoLinkContent(r.MessageText, strings.TrimSpace(r.VideoURL))
	default:
		content = model.TextContent(r.MessageText)
	}
	return content, content.Validate()
}

// Targets returns the trimmed group ids in submitted order. Blank entries are kept so the
// run records them as invalid.
func (r CreateGroupPostRequest) Targets() []string {
	out := make([]string, 0, len(r.Groups))
	for _, g := range r.Groups {
		out = append(out, strings.TrimSpace(g))
	}
	return out
}

// HasPostableTarget reports whether at least one group id is not blank.
func (r CreateGroupPostRequest) HasPostableTarget() bool {
	for _, g := range r.Groups {
		if strings.TrimSpace(g) != "" {
			return true
		}
	}
	return false
}

// InterPostDelay returns the delay in seconds, 0 when disabled.
func (r CreateGroupPostRequest) InterPostDelay() (int, error) {
	if !r.EnableDelay {
		return 0, nil
	}
	if r.Delay < 1 || r.Delay > MaxInterPostDelay {
		return 0, fmt.Errorf("%w: delay must be between 1 and %d seconds", model.ErrInvalidRequest, MaxInterPostDelay)
	}
	return r.Delay, nil
}

type CancelGroupPostResponse struct {
	JobID    string          `json:"id"`
	Status   model.JobStatus `json:"status"`
	Refunded int             `json:"refunded"`
	Message  string          `json:"message"`
}

type BalanceResponse struct {
	UserID  string `json:"userId"`
	Balance int    `json:"balance"`
}
