package memory

import (
	"context"
	"sync"

	"brainbolt-quiz-service/internal/domain"
)

// StateRepository is an in-memory implementation of app.StateRepository with
// the same compare-and-swap semantics as the Postgres one.
type StateRepository struct {
	mu     sync.RWMutex
	states map[string]domain.UserState
}

func NewStateRepository() *StateRepository {
	return &StateRepository{states: make(map[string]domain.UserState)}
}

func (r *StateRepository) Get(_ context.Context, userID string) (domain.UserState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[userID]
	if !ok {
		return domain.UserState{}, domain.ErrStateNotFound
	}
	return state, nil
}

func (r *StateRepository) CreateIfAbsent(_ context.Context, state domain.UserState) (domain.UserState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.states[state.UserID]; ok {
		return existing, nil
	}
	r.states[state.UserID] = state
	return state, nil
}

func (r *StateRepository) UpdateIfVersion(_ context.Context, state domain.UserState, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.states[state.UserID]
	if !ok || current.StateVersion != expectedVersion {
		return domain.ErrVersionConflict
	}
	r.states[state.UserID] = state
	return nil
}
