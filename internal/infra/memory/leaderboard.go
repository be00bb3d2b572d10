package memory

import (
	"context"
	"sort"
	"sync"

	"brainbolt-quiz-service/internal/domain"
)

// Leaderboard keeps the score and streak boards in memory.
type Leaderboard struct {
	mu     sync.RWMutex
	boards map[string]map[string]float64 // kind -> user -> value
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{boards: map[string]map[string]float64{
		domain.LeaderboardScore:  {},
		domain.LeaderboardStreak: {},
	}}
}

func (l *Leaderboard) UpdateScore(_ context.Context, userID string, totalScore float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.boards[domain.LeaderboardScore][userID] = totalScore
	return nil
}

func (l *Leaderboard) UpdateStreak(_ context.Context, userID string, maxStreak int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.boards[domain.LeaderboardStreak][userID] = float64(maxStreak)
	return nil
}

func (l *Leaderboard) Rank(_ context.Context, kind, userID string) (*int64, *float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ordered := l.orderedLocked(kind)
	for i, e := range ordered {
		if e.UserID == userID {
			rank := int64(i + 1)
			value := e.Value
			return &rank, &value, nil
		}
	}
	return nil, nil, nil
}

func (l *Leaderboard) Top(_ context.Context, kind string, limit int) ([]domain.LeaderboardEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ordered := l.orderedLocked(kind)
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered, nil
}

func (l *Leaderboard) orderedLocked(kind string) []domain.LeaderboardEntry {
	board := l.boards[kind]
	entries := make([]domain.LeaderboardEntry, 0, len(board))
	for userID, value := range board {
		entries = append(entries, domain.LeaderboardEntry{UserID: userID, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = int64(i + 1)
	}
	return entries
}
