package repository

import (
	"context"

	"autopost/domain/model"
)

// IGroupPoster publishes content into one group on behalf of the credential holder.
type IGroupPoster interface {
	Post(ctx context.Context, groupID string, content model.PostContent, accessToken string) (model.PostResult, error)
}
