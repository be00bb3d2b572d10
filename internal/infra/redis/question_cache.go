package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"brainbolt-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches difficulty-band pools in Redis and falls back to the
// wrapped source on a miss. Pools are stored as JSON under
// questions:pool:{lo}-{hi} with a jittered TTL.
type QuestionCache struct {
	client *redis.Client
	next   questionSource
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

type questionSource interface {
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	QuestionsInBand(ctx context.Context, minDifficulty, maxDifficulty int) ([]domain.Question, error)
	SampleQuestions(ctx context.Context, limit int) ([]domain.Question, error)
}

// cachedQuestion carries the correct answer explicitly; domain.Question hides
// it from client-facing JSON, but the cache must round-trip it intact.
type cachedQuestion struct {
	ID            string   `json:"id"`
	Difficulty    int      `json:"difficulty"`
	Prompt        string   `json:"prompt"`
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"correctAnswer"`
	Category      string   `json:"category"`
}

func NewQuestionCache(client *redis.Client, next questionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		next:   next,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func poolKey(lo, hi int) string { return fmt.Sprintf("questions:pool:%d-%d", lo, hi) }

func (c *QuestionCache) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	return c.next.GetQuestion(ctx, id)
}

func (c *QuestionCache) SampleQuestions(ctx context.Context, limit int) ([]domain.Question, error) {
	return c.next.SampleQuestions(ctx, limit)
}

func (c *QuestionCache) QuestionsInBand(ctx context.Context, minDifficulty, maxDifficulty int) ([]domain.Question, error) {
	key := poolKey(minDifficulty, maxDifficulty)

	if pool, ok := c.readPool(ctx, key); ok {
		return pool, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the pool.
		if pool, ok := c.readPool(ctx, key); ok {
			return pool, nil
		}

		questions, err := c.next.QuestionsInBand(ctx, minDifficulty, maxDifficulty)
		if err != nil {
			return nil, err
		}
		c.writePool(ctx, key, questions)
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) readPool(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}
	var cached []cachedQuestion
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, false
	}
	pool := make([]domain.Question, 0, len(cached))
	for _, q := range cached {
		pool = append(pool, domain.Question{
			ID:            q.ID,
			Difficulty:    q.Difficulty,
			Prompt:        q.Prompt,
			Choices:       q.Choices,
			CorrectAnswer: q.CorrectAnswer,
			Category:      q.Category,
		})
	}
	return pool, true
}

func (c *QuestionCache) writePool(ctx context.Context, key string, pool []domain.Question) {
	cached := make([]cachedQuestion, 0, len(pool))
	for _, q := range pool {
		cached = append(cached, cachedQuestion{
			ID:            q.ID,
			Difficulty:    q.Difficulty,
			Prompt:        q.Prompt,
			Choices:       q.Choices,
			CorrectAnswer: q.CorrectAnswer,
			Category:      q.Category,
		})
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		return
	}
	// best-effort write
	_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// fills for distinct pool keys run concurrently, so the source needs the lock
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	jitter := c.rnd.Int63n(jitterMax + 1)
	c.rndMu.Unlock()
	return c.ttl + time.Duration(jitter)
}
