package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"social-publisher/domain/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubServer(t *testing.T, hub *Hub, workspaceID string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/stream", func(c *gin.Context) {
		if workspaceID != "" {
			c.Set("workspace_id", workspaceID)
		}
		hub.Serve(c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHub_RequiresWorkspace(t *testing.T) {
	srv := newHubServer(t, NewPublishHub(), "")
	resp, err := http.Get(srv.URL + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_BroadcastReachesWorkspaceSubscriber(t *testing.T) {
	hub := NewPublishHub()
	srv := newHubServer(t, hub, "ws-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	first, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ":ok\n", first)
	require.Eventually(t, func() bool { return hub.Subscribers("ws-1") == 1 }, time.Second, 10*time.Millisecond)

	externalID := "tw-99"
	hub.BroadcastPostStatus(&model.ScheduledPost{WorkspaceID: "ws-2", ID: 1, Status: model.PostStatusFailed})
	hub.BroadcastPostStatus(&model.ScheduledPost{
		WorkspaceID:    "ws-1",
		ID:             7,
		Platform:       model.PlatformTwitter,
		Status:         model.PostStatusPublished,
		PlatformPostID: &externalID,
	})

	var eventLine, dataLine string
	for dataLine == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event:"):
			eventLine = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLine = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	assert.Equal(t, EventPublishStatus, eventLine)
	assert.Contains(t, dataLine, `"post_id":7`)
	assert.Contains(t, dataLine, `"external_ref":"tw-99"`)
	assert.NotContains(t, dataLine, `"workspace_id":"ws-2"`)

	cancel()
	require.Eventually(t, func() bool { return hub.Subscribers("ws-1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastWithoutSubscribers(t *testing.T) {
	hub := NewPublishHub()
	hub.BroadcastPostStatus(nil)
	hub.BroadcastPostStatus(&model.ScheduledPost{WorkspaceID: "nobody"})
	assert.Equal(t, 0, hub.Subscribers("nobody"))
}
