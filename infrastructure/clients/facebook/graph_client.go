package facebook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"autopost/domain/model"
	"autopost/domain/repository"
	"autopost/infrastructure/logger"
	"autopost/infrastructure/metrics"

	"github.com/go-resty/resty/v2"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const breakerName = "facebook-graph"

var (
	errServerSide = errors.New("graph api server error")
	// errAborted marks calls ended by the caller's context; they say nothing about Graph API health.
	errAborted = errors.New("request aborted")
)

type Config struct {
	BaseURL       string
	APIVersion    string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	BreakerWindow time.Duration
	BreakerOpen   time.Duration
	// TripAfter is the number of consecutive transport or 5xx failures that opens the breaker.
	TripAfter uint32
}

type graphPostResponse struct {
	ID string `json:"id"`
}

type graphErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// GraphClient posts to group feeds through the Graph API. All jobs share one client, so the
// limiter and breaker apply across jobs.
type GraphClient struct {
	r       *resty.Client
	version string
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[*resty.Response]
}

func NewGraphClient(cfg Config) repository.IGroupPoster {
	if cfg.TripAfter == 0 {
		cfg.TripAfter = 5
	}
	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	cb := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    cfg.BreakerWindow,
		Timeout:     cfg.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.TripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errAborted)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.GetLogger().
				WithField("breaker", name).
				WithField("from", from.String()).
				WithField("to", to.String()).
				Warn("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &GraphClient{r: r, version: cfg.APIVersion, limiter: limiter, cb: cb}
}

func (c *GraphClient) Post(ctx context.Context, groupID string, content model.PostContent, accessToken string) (model.PostResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.PostResult{}, err
		}
	}

	form := map[string]string{"message": content.Message}
	if content.Link != "" {
		form["link"] = content.Link
	}

	start := time.Now()
	resp, err := c.cb.Execute(func() (*resty.Response, error) {
		resp, err := c.r.R().
			SetContext(ctx).
			SetPathParams(map[string]string{"version": c.version, "groupID": groupID}).
			SetQueryParam("access_token", accessToken).
			SetFormData(form).
			SetResult(&graphPostResponse{}).
			SetError(&graphErrorResponse{}).
			Post("/{version}/{groupID}/feed")
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", errAborted, err)
			}
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, errServerSide
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordGraphRequest("rejected", time.Since(start))
		return model.PostResult{}, fmt.Errorf("%w: %v", model.ErrProviderUnavailable, err)
	case errors.Is(err, errServerSide):
		metrics.RecordGraphRequest("provider_error", time.Since(start))
		return providerError(resp), nil
	case err != nil:
		metrics.RecordGraphRequest("transport_error", time.Since(start))
		return model.PostResult{}, err
	}

	if resp.IsError() {
		metrics.RecordGraphRequest("provider_error", time.Since(start))
		return providerError(resp), nil
	}
	metrics.RecordGraphRequest("success", time.Since(start))

	out := model.PostResult{Success: true, StatusCode: resp.StatusCode()}
	if body, ok := resp.Result().(*graphPostResponse); ok {
		out.PostID = body.ID
	}
	return out, nil
}

func providerError(resp *resty.Response) model.PostResult {
	out := model.PostResult{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*graphErrorResponse); ok && body.Error.Message != "" {
		out.Error = body.Error.Message
	} else {
		out.Error = http.StatusText(resp.StatusCode())
	}
	return out
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
