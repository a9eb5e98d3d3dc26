package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"social-publisher/domain/model"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(providerCalls.WithLabelValues("twitter", "publish", "failure"))
	RecordOperation(model.PlatformTwitter, "publish", false, 120*time.Millisecond)
	RecordOperation(model.PlatformTwitter, "publish", true, 80*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(providerCalls.WithLabelValues("twitter", "publish", "failure")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(providerCalls.WithLabelValues("twitter", "publish", "success")), 1.0)
}

func TestRecordSweep(t *testing.T) {
	success := testutil.ToFloat64(sweepPosts.WithLabelValues("success"))
	failure := testutil.ToFloat64(sweepPosts.WithLabelValues("failure"))

	RecordSweep(&model.SweepReport{Processed: 3, Successful: 2, Failed: 1}, time.Second)

	assert.Equal(t, success+2, testutil.ToFloat64(sweepPosts.WithLabelValues("success")))
	assert.Equal(t, failure+1, testutil.ToFloat64(sweepPosts.WithLabelValues("failure")))
}

func TestGinMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/posts/:platform/:postId", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts/twitter/123", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/posts/:platform/:postId", "204")), 1.0)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "social_publisher_http_requests_total"))
}
