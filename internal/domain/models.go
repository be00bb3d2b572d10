package domain

import "time"

// UserState is the persistent per-user performance record. It is owned by the
// submission coordinator and only ever mutated through the adaptive processor's
// output, guarded by StateVersion at write time.
type UserState struct {
	UserID            string     `json:"userId"`
	CurrentDifficulty float64    `json:"currentDifficulty"`
	Streak            int        `json:"streak"`
	MaxStreak         int        `json:"maxStreak"`
	TotalScore        float64    `json:"totalScore"`
	TotalAnswers      int        `json:"totalAnswers"`
	CorrectAnswers    int        `json:"correctAnswers"`
	Momentum          float64    `json:"momentum"`
	RecentCorrect     float64    `json:"recentCorrect"`
	RecentTotal       int        `json:"recentTotal"`
	StateVersion      int64      `json:"stateVersion"`
	LastQuestionID    *string    `json:"lastQuestionId,omitempty"`
	LastAnswerAt      *time.Time `json:"lastAnswerAt,omitempty"`
}

// DefaultUserState is the state a user starts from on first contact.
func DefaultUserState(userID string) UserState {
	return UserState{
		UserID:            userID,
		CurrentDifficulty: 3,
		StateVersion:      1,
	}
}

// Question is immutable reference data owned by the question repository.
// CorrectAnswer is never serialized to clients.
type Question struct {
	ID            string   `json:"id"`
	Difficulty    int      `json:"difficulty"`
	Prompt        string   `json:"prompt"`
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"-"`
	Category      string   `json:"category"`
}

// AnswerRecord is the dedup/audit row written once per accepted submission,
// keyed by (UserID, IdempotencyKey).
type AnswerRecord struct {
	UserID             string    `json:"userId"`
	QuestionID         string    `json:"questionId"`
	Answer             string    `json:"answer"`
	Correct            bool      `json:"correct"`
	ScoreDelta         float64   `json:"scoreDelta"`
	DifficultyAtAnswer float64   `json:"difficultyAtAnswer"`
	StreakAtAnswer     int       `json:"streakAtAnswer"`
	IdempotencyKey     string    `json:"idempotencyKey"`
	AnsweredAt         time.Time `json:"answeredAt"`
}

// NextQuestion is the question-fetch response view.
type NextQuestion struct {
	QuestionID        string   `json:"questionId"`
	Difficulty        int      `json:"difficulty"`
	Prompt            string   `json:"prompt"`
	Choices           []string `json:"choices"`
	Category          string   `json:"category"`
	SessionID         string   `json:"sessionId"`
	StateVersion      int64    `json:"stateVersion"`
	CurrentScore      float64  `json:"currentScore"`
	CurrentStreak     int      `json:"currentStreak"`
	MaxStreak         int      `json:"maxStreak"`
	CurrentDifficulty float64  `json:"currentDifficulty"`
}

// AnswerResult is the submission response view.
type AnswerResult struct {
	Correct       bool    `json:"correct"`
	NewDifficulty float64 `json:"newDifficulty"`
	NewStreak     int     `json:"newStreak"`
	ScoreDelta    float64 `json:"scoreDelta"`
	TotalScore    float64 `json:"totalScore"`
	StateVersion  int64   `json:"stateVersion"`
	MaxStreak     int     `json:"maxStreak"`
	RankScore     *int64  `json:"leaderboardRankScore"`
	RankStreak    *int64  `json:"leaderboardRankStreak"`
}

// Metrics is a passive projection of a user's performance.
type Metrics struct {
	CurrentDifficulty   float64 `json:"currentDifficulty"`
	Streak              int     `json:"streak"`
	MaxStreak           int     `json:"maxStreak"`
	TotalScore          float64 `json:"totalScore"`
	Accuracy            int     `json:"accuracy"`
	TotalAnswers        int     `json:"totalAnswers"`
	CorrectAnswers      int     `json:"correctAnswers"`
	Momentum            float64 `json:"momentum"`
	RecentCorrect       float64 `json:"recentCorrect"`
	RecentTotal         int     `json:"recentTotal"`
	DifficultyHistogram []int   `json:"difficultyHistogram"`
	RecentPerformance   []bool  `json:"recentPerformance"`
}

// Leaderboard kinds.
const (
	LeaderboardScore  = "score"
	LeaderboardStreak = "streak"
)

// LeaderboardEntry is one ranked row of a leaderboard.
type LeaderboardEntry struct {
	Rank   int64   `json:"rank"`
	UserID string  `json:"userId"`
	Value  float64 `json:"value"`
}

// Leaderboard is an ordered top-N view plus the requesting user's position.
type Leaderboard struct {
	Kind      string             `json:"kind"`
	Entries   []LeaderboardEntry `json:"entries"`
	UserRank  *int64             `json:"userRank"`
	UserValue *float64           `json:"userValue"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
