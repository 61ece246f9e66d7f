package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-journey/internal/app"
	"quiz-journey/internal/domain"
)

// QuestionCache caches themed question batches with TTL to avoid repeated
// generator calls. Unthemed (random) criteria always go to the source.
type QuestionCache struct {
	source app.QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedBatch
}

type cachedBatch struct {
	questions []domain.RawQuestion
	expiresAt time.Time
}

func NewQuestionCache(source app.QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBatch),
	}
}

func (c *QuestionCache) Fetch(ctx context.Context, criteria domain.Criteria) ([]domain.RawQuestion, error) {
	if !criteria.Themed() || c.ttl <= 0 {
		return c.source.Fetch(ctx, criteria)
	}
	key := criteria.CacheKey()

	if batch, ok := c.lookup(key); ok {
		return batch, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if batch, ok := c.lookup(key); ok {
			return batch, nil
		}

		batch, err := c.source.Fetch(ctx, criteria)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateRaw(batch); err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedBatch{
			questions: batch,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return batch, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneBatch(result.([]domain.RawQuestion)), nil
}

func (c *QuestionCache) lookup(key string) ([]domain.RawQuestion, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	return cloneBatch(entry.questions), true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func cloneBatch(in []domain.RawQuestion) []domain.RawQuestion {
	out := make([]domain.RawQuestion, len(in))
	for i, q := range in {
		opts := make([]string, len(q.Options))
		copy(opts, q.Options)
		out[i] = domain.RawQuestion{Question: q.Question, Options: opts, CorrectAnswer: q.CorrectAnswer}
	}
	return out
}
