package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	httpHandler "social-publisher/interfaces/http"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return InitiateRouter(
		"secret",
		nil,
		httpHandler.NewConnectionHandler(nil, nil),
		httpHandler.NewPublishHandler(nil),
		httpHandler.NewScheduleHandler(nil, nil),
		httpHandler.NewActivityHandler(nil),
	)
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRouter_PublicRoutes(t *testing.T) {
	r := newTestRouter()

	w := serve(r, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"ok"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	// Provider errors are answered without touching the usecase.
	w = serve(r, http.MethodGet, "/auth/twitter/callback?error=access_denied")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_APIRequiresToken(t *testing.T) {
	r := newTestRouter()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/twitter"},
		{http.MethodGet, "/api/connections"},
		{http.MethodPost, "/api/publish"},
		{http.MethodGet, "/api/posts/twitter/1"},
		{http.MethodPatch, "/api/schedule/1"},
		{http.MethodGet, "/api/schedule/stream"},
		{http.MethodGet, "/api/activity"},
	} {
		w := serve(r, tc.method, tc.path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}
