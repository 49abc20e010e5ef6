package facebook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"autopost/domain/model"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *GraphClient {
	return NewGraphClient(Config{
		BaseURL:       url,
		APIVersion:    "v19.0",
		Timeout:       2 * time.Second,
		BreakerWindow: time.Minute,
		BreakerOpen:   time.Minute,
		TripAfter:     3,
	}).(*GraphClient)
}

func TestGraphClient_Post_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v19.0/1234567/feed", r.URL.Path)
		assert.Equal(t, "token-1", r.URL.Query().Get("access_token"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "hello", r.PostForm.Get("message"))
		assert.Equal(t, "https://img.example/cat.png", r.PostForm.Get("link"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1234567_890"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	res, err := client.Post(context.Background(), "1234567", model.ImageLinkContent("hello", "https://img.example/cat.png"), "token-1")

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "1234567_890", res.PostID)
}

func TestGraphClient_Post_TextHasNoLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		_, hasLink := r.PostForm["link"]
		assert.False(t, hasLink)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1_2"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Post(context.Background(), "1234567", model.TextContent("hi"), "token-1")

	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestGraphClient_Post_SuccessWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Post(context.Background(), "1234567", model.TextContent("hi"), "token-1")

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.PostID)
}

func TestGraphClient_Post_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"(#200) Permissions error","type":"OAuthException","code":200}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Post(context.Background(), "1234567", model.TextContent("hi"), "token-1")

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, "(#200) Permissions error", res.Error)
}

func TestGraphClient_Post_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Post(context.Background(), "1234567", model.TextContent("hi"), "token-1")

	require.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrProviderUnavailable))
}

func TestGraphClient_Post_BreakerOpensOnServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"Service temporarily unavailable"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	for i := 0; i < 3; i++ {
		res, err := client.Post(context.Background(), "1234567", model.TextContent("hi"), "token-1")
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
		assert.Equal(t, "Service temporarily unavailable", res.Error)
	}

	_, err := client.Post(context.Background(), "1234567", model.TextContent("hi"), "token-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrProviderUnavailable))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGraphClient_Post_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	for i := 0; i < 5; i++ {
		res, err := client.Post(context.Background(), "1234567", model.TextContent("hi"), "token-1")
		require.NoError(t, err)
		assert.False(t, res.Success)
	}
}

func TestGraphClient_Post_AbortedCallsDoNotTrip(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1_2"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, err := client.Post(canceled, "1234567", model.TextContent("hi"), "token-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, model.ErrProviderUnavailable))
	}

	res, err := client.Post(context.Background(), "1234567", model.TextContent("hi"), "token-1")

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, gobreaker.StateClosed, client.cb.State())
}
