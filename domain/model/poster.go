package model

import "errors"

// ErrProviderUnavailable is returned by the poster while the provider is considered down
// and calls are short-circuited.
var ErrProviderUnavailable = errors.New("Facebook API unavailable")

// PostResult is the provider's answer to one post attempt. Transport failures are reported
// as errors instead.
type PostResult struct {
	Success    bool
	PostID     string
	StatusCode int
	Error      string
}
