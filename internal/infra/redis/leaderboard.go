package redis

import (
	"context"
	"errors"

	"brainbolt-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Leaderboard keeps the score and streak boards as Redis sorted sets:
// ZADD leaderboard:{kind} {value} {userID}. Ranks come from ZREVRANK.
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

func boardKey(kind string) string { return "leaderboard:" + kind }

func (l *Leaderboard) UpdateScore(ctx context.Context, userID string, totalScore float64) error {
	return l.client.ZAdd(ctx, boardKey(domain.LeaderboardScore), redis.Z{Score: totalScore, Member: userID}).Err()
}

func (l *Leaderboard) UpdateStreak(ctx context.Context, userID string, maxStreak int) error {
	return l.client.ZAdd(ctx, boardKey(domain.LeaderboardStreak), redis.Z{Score: float64(maxStreak), Member: userID}).Err()
}

func (l *Leaderboard) Rank(ctx context.Context, kind, userID string) (*int64, *float64, error) {
	key := boardKey(kind)
	pos, err := l.client.ZRevRank(ctx, key, userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	value, err := l.client.ZScore(ctx, key, userID).Result()
	if err != nil {
		return nil, nil, err
	}
	rank := pos + 1
	return &rank, &value, nil
}

func (l *Leaderboard) Top(ctx context.Context, kind string, limit int) ([]domain.LeaderboardEntry, error) {
	members, err := l.client.ZRevRangeWithScores(ctx, boardKey(kind), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		userID, _ := m.Member.(string)
		entries = append(entries, domain.LeaderboardEntry{
			Rank:   int64(i + 1),
			UserID: userID,
			Value:  m.Score,
		})
	}
	return entries, nil
}
