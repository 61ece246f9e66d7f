package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-journey/internal/app"
	"quiz-journey/internal/domain"
)

// QuestionCache keeps generated question batches in Redis so instances share
// them. Batches are stored as a JSON array under quiz:questions:{criteria}.
// Unthemed criteria always reach the source.
type QuestionCache struct {
	client *redis.Client
	source app.QuestionSource
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, source app.QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch serves themed batches from Redis. Random draws and a non-positive ttl
// go straight to the source.
func (c *QuestionCache) Fetch(ctx context.Context, criteria domain.Criteria) ([]domain.RawQuestion, error) {
	if !criteria.Themed() || c.ttl <= 0 {
		return c.source.Fetch(ctx, criteria)
	}
	key := c.key(criteria)

	if batch, ok := c.lookup(ctx, key); ok {
		return batch, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if batch, ok := c.lookup(ctx, key); ok {
			return batch, nil
		}

		batch, err := c.source.Fetch(ctx, criteria)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateRaw(batch); err != nil {
			return nil, err
		}

		payload, err := json.Marshal(batch)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, payload, c.ttlWithJitter()).Err(); err != nil {
			log.Printf("question cache: store %s: %v", key, err)
		}
		return batch, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RawQuestion), nil
}

// Invalidate drops the cached batch for criteria.
func (c *QuestionCache) Invalidate(ctx context.Context, criteria domain.Criteria) error {
	return c.client.Del(ctx, c.key(criteria)).Err()
}

func (c *QuestionCache) lookup(ctx context.Context, key string) ([]domain.RawQuestion, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("question cache: read %s: %v", key, err)
		}
		return nil, false
	}
	var batch []domain.RawQuestion
	if err := json.Unmarshal(payload, &batch); err != nil {
		log.Printf("question cache: decode %s: %v", key, err)
		return nil, false
	}
	if domain.ValidateRaw(batch) != nil {
		return nil, false
	}
	return batch, true
}

func (c *QuestionCache) key(criteria domain.Criteria) string {
	return "quiz:questions:" + criteria.CacheKey()
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
