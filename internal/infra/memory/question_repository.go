package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"brainbolt-quiz-service/internal/domain"
)

// QuestionRepository serves a static question set from memory; used when no
// Postgres is configured and throughout the unit tests.
type QuestionRepository struct {
	byID  map[string]domain.Question
	all   []domain.Question
	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionRepository(questions []domain.Question) *QuestionRepository {
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &QuestionRepository{
		byID: byID,
		all:  append([]domain.Question(nil), questions...),
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestion(_ context.Context, id string) (domain.Question, error) {
	if q, ok := r.byID[id]; ok {
		return q, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (r *QuestionRepository) QuestionsInBand(_ context.Context, minDifficulty, maxDifficulty int) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range r.all {
		if q.Difficulty >= minDifficulty && q.Difficulty <= maxDifficulty {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *QuestionRepository) SampleQuestions(_ context.Context, limit int) ([]domain.Question, error) {
	out := append([]domain.Question(nil), r.all...)
	r.rndMu.Lock()
	r.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	r.rndMu.Unlock()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
