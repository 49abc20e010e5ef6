package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	httpHandler "autopost/interfaces/http"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubGroupPostHandler struct{}

func (stubGroupPostHandler) Create(ctx *gin.Context)  { ctx.String(http.StatusOK, "create") }
func (stubGroupPostHandler) List(ctx *gin.Context)    { ctx.String(http.StatusOK, "list") }
func (stubGroupPostHandler) Get(ctx *gin.Context)     { ctx.String(http.StatusOK, "get "+ctx.Param("id")) }
func (stubGroupPostHandler) Delete(ctx *gin.Context)  { ctx.String(http.StatusOK, "delete "+ctx.Param("id")) }
func (stubGroupPostHandler) History(ctx *gin.Context) { ctx.String(http.StatusOK, "history") }

type stubPointsHandler struct{}

func (stubPointsHandler) Balance(ctx *gin.Context)      { ctx.String(http.StatusOK, "balance") }
func (stubPointsHandler) Transactions(ctx *gin.Context) { ctx.String(http.StatusOK, "transactions") }

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return InitiateRouter("secret", []string{"http://localhost:3000"}, httpHandler.NewHealthHandler(), stubGroupPostHandler{}, stubPointsHandler{})
}

func TestRouter_PublicRoutes(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_APIRequiresToken(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/api/instant-group-posts", "/api/instant-group-posts/history", "/api/points/balance"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}
