package memory

import (
	"context"
	"sync"

	"brainbolt-quiz-service/internal/domain"
)

// AnswerLog is an in-memory implementation of app.AnswerLogRepository.
type AnswerLog struct {
	mu     sync.RWMutex
	byKey  map[string]domain.AnswerRecord
	byUser map[string][]domain.AnswerRecord // append order, oldest first
}

func NewAnswerLog() *AnswerLog {
	return &AnswerLog{
		byKey:  make(map[string]domain.AnswerRecord),
		byUser: make(map[string][]domain.AnswerRecord),
	}
}

func dedupKey(userID, idempotencyKey string) string {
	return userID + "\x00" + idempotencyKey
}

func (l *AnswerLog) Get(_ context.Context, userID, idempotencyKey string) (domain.AnswerRecord, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	record, ok := l.byKey[dedupKey(userID, idempotencyKey)]
	return record, ok, nil
}

func (l *AnswerLog) CreateOnce(_ context.Context, record domain.AnswerRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := dedupKey(record.UserID, record.IdempotencyKey)
	if _, ok := l.byKey[key]; ok {
		return domain.ErrDuplicateAnswer
	}
	l.byKey[key] = record
	l.byUser[record.UserID] = append(l.byUser[record.UserID], record)
	return nil
}

func (l *AnswerLog) ListByUser(_ context.Context, userID string, limit int) ([]domain.AnswerRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	stored := l.byUser[userID]
	out := make([]domain.AnswerRecord, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- { // newest first
		out = append(out, stored[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
