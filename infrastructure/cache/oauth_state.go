package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"

	"github.com/redis/go-redis/v9"
)

// StateTTL bounds the time between the authorization redirect and the callback.
const StateTTL = 10 * time.Minute

const stateKeyPrefix = "oauth:state:"

type redisStateCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewOAuthStateCache keeps states in Redis. Consume uses GETDEL so a state is used at most once.
func NewOAuthStateCache(client redis.Cmdable) repository.IOAuthStateCache {
	return &redisStateCache{client: client, ttl: StateTTL}
}

func (c *redisStateCache) Save(ctx context.Context, state string, value *model.OAuthState) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode oauth state: %w", err)
	}
	if err := c.client.Set(ctx, stateKeyPrefix+state, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

func (c *redisStateCache) Consume(ctx context.Context, state string) (*model.OAuthState, error) {
	raw, err := c.client.GetDel(ctx, stateKeyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrOAuthStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	var out model.OAuthState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode oauth state: %w", err)
	}
	return &out, nil
}

type memoryEntry struct {
	value   model.OAuthState
	expires time.Time
}

// MemoryStateCache is the single-instance fallback used when Redis is not configured.
type MemoryStateCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStateCache() *MemoryStateCache {
	return &MemoryStateCache{entries: map[string]memoryEntry{}, ttl: StateTTL, now: time.Now}
}

func (c *MemoryStateCache) Save(_ context.Context, state string, value *model.OAuthState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[state] = memoryEntry{value: *value, expires: now.Add(c.ttl)}
	return nil
}

func (c *MemoryStateCache) Consume(_ context.Context, state string) (*model.OAuthState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[state]
	if !ok {
		return nil, model.ErrOAuthStateNotFound
	}
	delete(c.entries, state)
	if c.now().After(e.expires) {
		return nil, model.ErrOAuthStateNotFound
	}
	v := e.value
	return &v, nil
}
