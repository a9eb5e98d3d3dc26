package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"social-publisher/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateCache_ConsumeOnce(t *testing.T) {
	c := NewMemoryStateCache()
	ctx := context.Background()
	in := &model.OAuthState{WorkspaceID: "ws-1", Platform: model.PlatformTwitter, CodeVerifier: "verifier"}

	require.NoError(t, c.Save(ctx, "abc", in))
	got, err := c.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "ws-1", got.WorkspaceID)
	assert.Equal(t, "verifier", got.CodeVerifier)

	_, err = c.Consume(ctx, "abc")
	assert.ErrorIs(t, err, model.ErrOAuthStateNotFound)
}

func TestMemoryStateCache_Expires(t *testing.T) {
	c := NewMemoryStateCache()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "late", &model.OAuthState{WorkspaceID: "ws-1"}))
	now = now.Add(StateTTL + time.Second)

	_, err := c.Consume(ctx, "late")
	assert.ErrorIs(t, err, model.ErrOAuthStateNotFound)
}

func TestMemoryStateCache_SavePrunesExpired(t *testing.T) {
	c := NewMemoryStateCache()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "old", &model.OAuthState{}))
	now = now.Add(StateTTL + time.Minute)
	require.NoError(t, c.Save(ctx, "new", &model.OAuthState{}))
	assert.Len(t, c.entries, 1)
}

// Runs against a live Redis when REDIS_TEST_ADDR is set.
func TestRedisStateCache(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewCache(ctx, addr, "", os.Getenv("REDIS_TEST_PASSWORD"))
	require.NoError(t, err)
	defer client.Close()

	c := NewOAuthStateCache(client)
	state := fmt.Sprintf("test-%d", time.Now().UnixNano())
	require.NoError(t, c.Save(ctx, state, &model.OAuthState{WorkspaceID: "ws-9", Platform: model.PlatformYouTube}))

	ttl, err := client.TTL(ctx, stateKeyPrefix+state).Result()
	require.NoError(t, err)
	assert.InDelta(t, StateTTL.Seconds(), ttl.Seconds(), 5)

	got, err := c.Consume(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, model.PlatformYouTube, got.Platform)

	_, err = c.Consume(ctx, state)
	assert.ErrorIs(t, err, model.ErrOAuthStateNotFound)
}
