package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atharva9604/conversational-insights-generator/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("record not cached")

// ResponseCache keeps finished call responses hot in Redis so record lookups
// skip Postgres. Entries are written post-commit only.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResponseCache(client *redis.Client, ttl time.Duration) *ResponseCache {
	return &ResponseCache{client: client, ttl: ttl}
}

func cacheKey(uniqueID string) string {
	return fmt.Sprintf("call-record:%s", uniqueID)
}

func (c *ResponseCache) Set(ctx context.Context, resp *models.CallResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(resp.UniqueID), data, c.ttl).Err()
}

func (c *ResponseCache) Get(ctx context.Context, uniqueID string) (*models.CallResponse, error) {
	data, err := c.client.Get(ctx, cacheKey(uniqueID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var resp models.CallResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
