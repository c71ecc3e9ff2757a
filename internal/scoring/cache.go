package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eleven-am/interview-coach/internal/shared"
)

const (
	cacheKeyPrefix  = "resume_score:"
	DefaultCacheTTL = 24 * time.Hour
)

// Cache keeps reports keyed by the hash of the resume text so identical
// resumes are not sent to the model twice.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{redis: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, hash string) (*Report, error) {
	data, err := c.redis.Get(ctx, cacheKeyPrefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Cache) Set(ctx context.Context, hash string, report Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, cacheKeyPrefix+hash, data, c.ttl).Err()
}

func hashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
