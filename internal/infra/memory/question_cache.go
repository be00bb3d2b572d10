package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"brainbolt-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches difficulty-band pools with a TTL to avoid repeated
// repository hits; lookups by id and samples pass through.
type QuestionCache struct {
	next  questionSource
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	pools map[string]cachedPool
}

// questionSource mirrors app.QuestionRepository without importing the app
// package (which would cycle through the interface declarations).
type questionSource interface {
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	QuestionsInBand(ctx context.Context, minDifficulty, maxDifficulty int) ([]domain.Question, error)
	SampleQuestions(ctx context.Context, limit int) ([]domain.Question, error)
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(next questionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		next:  next,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		pools: make(map[string]cachedPool),
	}
}

func (c *QuestionCache) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	return c.next.GetQuestion(ctx, id)
}

func (c *QuestionCache) SampleQuestions(ctx context.Context, limit int) ([]domain.Question, error) {
	return c.next.SampleQuestions(ctx, limit)
}

func (c *QuestionCache) QuestionsInBand(ctx context.Context, minDifficulty, maxDifficulty int) ([]domain.Question, error) {
	key := fmt.Sprintf("%d-%d", minDifficulty, maxDifficulty)
	now := c.clock()

	c.mu.RLock()
	if pool, ok := c.pools[key]; ok && pool.expiresAt.After(now) {
		c.mu.RUnlock()
		return pool.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if pool, ok := c.pools[key]; ok && pool.expiresAt.After(now) {
			c.mu.RUnlock()
			return pool.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.next.QuestionsInBand(ctx, minDifficulty, maxDifficulty)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.pools[key] = cachedPool{questions: questions, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations; fills for distinct bands run
	// concurrently, so the source needs the lock
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	jitter := c.rnd.Int63n(jitterMax + 1)
	c.rndMu.Unlock()
	return c.ttl + time.Duration(jitter)
}
