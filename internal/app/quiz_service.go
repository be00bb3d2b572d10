package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"brainbolt-quiz-service/internal/adaptive"
	"brainbolt-quiz-service/internal/domain"
)

// StateRepository persists per-user adaptive state. Writes are conditional on
// the version the caller last observed.
type StateRepository interface {
	Get(ctx context.Context, userID string) (domain.UserState, error)
	// CreateIfAbsent inserts the given state unless a row already exists and
	// returns whichever row is now persisted.
	CreateIfAbsent(ctx context.Context, state domain.UserState) (domain.UserState, error)
	// UpdateIfVersion commits state only if the persisted version still equals
	// expectedVersion; otherwise it returns domain.ErrVersionConflict.
	UpdateIfVersion(ctx context.Context, state domain.UserState, expectedVersion int64) error
}

// QuestionRepository loads immutable question content.
type QuestionRepository interface {
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	QuestionsInBand(ctx context.Context, minDifficulty, maxDifficulty int) ([]domain.Question, error)
	SampleQuestions(ctx context.Context, limit int) ([]domain.Question, error)
}

// AnswerLogRepository stores one record per accepted submission and serves as
// the idempotency guard.
type AnswerLogRepository interface {
	Get(ctx context.Context, userID, idempotencyKey string) (domain.AnswerRecord, bool, error)
	// CreateOnce fails with domain.ErrDuplicateAnswer if a record with the
	// same (user, key) already exists.
	CreateOnce(ctx context.Context, record domain.AnswerRecord) error
	// ListByUser returns records newest first; limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AnswerRecord, error)
}

// LeaderboardRepository maintains the score and streak boards. All writes are
// best-effort; the boards are a projection, never the system of record.
type LeaderboardRepository interface {
	UpdateScore(ctx context.Context, userID string, totalScore float64) error
	UpdateStreak(ctx context.Context, userID string, maxStreak int) error
	Rank(ctx context.Context, kind, userID string) (*int64, *float64, error)
	Top(ctx context.Context, kind string, limit int) ([]domain.LeaderboardEntry, error)
}

// Cache is an advisory get/set/del store. A miss or staleness only costs an
// extra repository read, never a scoring decision.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// SubmitRequest carries one answer submission through the coordinator.
type SubmitRequest struct {
	UserID         string
	SessionID      string
	QuestionID     string
	Answer         string
	StateVersion   int64
	IdempotencyKey string
}

// QuizService contains the quiz use cases: question selection, answer
// submission, metrics, and leaderboards.
type QuizService struct {
	states    StateRepository
	questions QuestionRepository
	answers   AnswerLogRepository
	boards    LeaderboardRepository
	cache     Cache // may be nil
	hub       *Hub

	stateTTL          time.Duration
	topN              int
	defaultDifficulty float64

	now func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Option overrides one of the service tunables at construction time.
type Option func(*QuizService)

// WithStateTTL sets how long cached user state stays valid.
func WithStateTTL(ttl time.Duration) Option {
	return func(s *QuizService) {
		if ttl > 0 {
			s.stateTTL = ttl
		}
	}
}

// WithLeaderboardSize sets the top-N size of leaderboard views and snapshots.
func WithLeaderboardSize(n int) Option {
	return func(s *QuizService) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithDefaultDifficulty sets the difficulty new users start at. Values outside
// the difficulty scale are ignored.
func WithDefaultDifficulty(d float64) Option {
	return func(s *QuizService) {
		if d >= adaptive.MinDifficulty && d <= adaptive.MaxDifficulty {
			s.defaultDifficulty = d
		}
	}
}

func NewQuizService(states StateRepository, questions QuestionRepository, answers AnswerLogRepository, boards LeaderboardRepository, cache Cache, opts ...Option) *QuizService {
	return NewQuizServiceWithClock(states, questions, answers, boards, cache,
		time.Now, rand.New(rand.NewSource(time.Now().UnixNano())), opts...)
}

// NewQuizServiceWithClock is test-only for deterministic time and selection.
func NewQuizServiceWithClock(states StateRepository, questions QuestionRepository, answers AnswerLogRepository, boards LeaderboardRepository, cache Cache, now func() time.Time, rnd *rand.Rand, opts ...Option) *QuizService {
	s := &QuizService{
		states:            states,
		questions:         questions,
		answers:           answers,
		boards:            boards,
		cache:             cache,
		hub:               NewHub(),
		stateTTL:          time.Minute,
		topN:              50,
		defaultDifficulty: 3,
		now:               now,
		rnd:               rnd,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func stateCacheKey(userID string) string { return "user:state:" + userID }

// NextQuestion picks a question near the user's current difficulty, applying
// lazy streak decay first. It never mutates state beyond the decay bump.
func (s *QuizService) NextQuestion(ctx context.Context, userID, sessionID string) (domain.NextQuestion, error) {
	state, err := s.loadState(ctx, userID)
	if err != nil {
		return domain.NextQuestion{}, err
	}

	if decayed, applied := adaptive.DecayStreak(state.Streak, state.LastAnswerAt, s.now()); applied {
		updated := state
		updated.Streak = decayed
		updated.StateVersion = state.StateVersion + 1
		switch err := s.states.UpdateIfVersion(ctx, updated, state.StateVersion); {
		case err == nil:
			state = updated
			s.invalidateState(ctx, userID)
		case errors.Is(err, domain.ErrVersionConflict):
			// Someone else moved the state first; their write already
			// reflects a fresh interaction, so read it back.
			if state, err = s.states.Get(ctx, userID); err != nil {
				return domain.NextQuestion{}, err
			}
		default:
			return domain.NextQuestion{}, err
		}
	}

	question, err := s.selectQuestion(ctx, state)
	if err != nil {
		return domain.NextQuestion{}, err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return domain.NextQuestion{
		QuestionID:        question.ID,
		Difficulty:        question.Difficulty,
		Prompt:            question.Prompt,
		Choices:           question.Choices,
		Category:          question.Category,
		SessionID:         sessionID,
		StateVersion:      state.StateVersion,
		CurrentScore:      state.TotalScore,
		CurrentStreak:     state.Streak,
		MaxStreak:         state.MaxStreak,
		CurrentDifficulty: state.CurrentDifficulty,
	}, nil
}

// selectQuestion builds the candidate pool: difficulty band ±1 around the
// rounded current difficulty, sample fallback when the band is empty, last
// question excluded unless that empties the pool, exact difficulty preferred.
func (s *QuizService) selectQuestion(ctx context.Context, state domain.UserState) (domain.Question, error) {
	rounded := int(math.Round(state.CurrentDifficulty))
	lo := rounded - 1
	if lo < int(adaptive.MinDifficulty) {
		lo = int(adaptive.MinDifficulty)
	}
	hi := rounded + 1
	if hi > int(adaptive.MaxDifficulty) {
		hi = int(adaptive.MaxDifficulty)
	}

	pool, err := s.questions.QuestionsInBand(ctx, lo, hi)
	if err != nil {
		return domain.Question{}, fmt.Errorf("question band %d-%d: %w", lo, hi, err)
	}
	if len(pool) == 0 {
		if pool, err = s.questions.SampleQuestions(ctx, 10); err != nil {
			return domain.Question{}, fmt.Errorf("question sample: %w", err)
		}
		if len(pool) == 0 {
			return domain.Question{}, domain.ErrNoQuestions
		}
	}

	candidates := pool
	if state.LastQuestionID != nil {
		filtered := make([]domain.Question, 0, len(pool))
		for _, q := range pool {
			if q.ID != *state.LastQuestionID {
				filtered = append(filtered, q)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	exact := make([]domain.Question, 0, len(candidates))
	for _, q := range candidates {
		if q.Difficulty == rounded {
			exact = append(exact, q)
		}
	}
	if len(exact) > 0 {
		candidates = exact
	}

	s.rndMu.Lock()
	pick := candidates[s.rnd.Intn(len(candidates))]
	s.rndMu.Unlock()
	return pick, nil
}

// SubmitAnswer runs the submission state machine: dedup check, optimistic
// version check, grading, the adaptive transition, and a conditional commit.
func (s *QuizService) SubmitAnswer(ctx context.Context, req SubmitRequest) (domain.AnswerResult, error) {
	record, found, err := s.answers.Get(ctx, req.UserID, req.IdempotencyKey)
	if err != nil {
		return domain.AnswerResult{}, fmt.Errorf("dedup lookup: %w", err)
	}
	if found {
		// Retried submission: replay the stored outcome against the current
		// state without re-executing the transition.
		state, err := s.loadState(ctx, req.UserID)
		if err != nil {
			return domain.AnswerResult{}, err
		}
		return s.answerResult(ctx, state, record.Correct, record.ScoreDelta), nil
	}

	state, err := s.loadState(ctx, req.UserID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if state.StateVersion != req.StateVersion {
		return domain.AnswerResult{}, domain.ErrVersionConflict
	}

	question, err := s.questions.GetQuestion(ctx, req.QuestionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	correct := req.Answer == question.CorrectAnswer

	next, scoreDelta := adaptive.Process(adaptive.State{
		CurrentDifficulty: state.CurrentDifficulty,
		Streak:            state.Streak,
		MaxStreak:         state.MaxStreak,
		TotalScore:        state.TotalScore,
		TotalAnswers:      state.TotalAnswers,
		CorrectAnswers:    state.CorrectAnswers,
		Momentum:          state.Momentum,
		RecentCorrect:     state.RecentCorrect,
		RecentTotal:       state.RecentTotal,
		StateVersion:      state.StateVersion,
	}, correct)

	now := s.now()
	updated := domain.UserState{
		UserID:            state.UserID,
		CurrentDifficulty: next.CurrentDifficulty,
		Streak:            next.Streak,
		MaxStreak:         next.MaxStreak,
		TotalScore:        next.TotalScore,
		TotalAnswers:      next.TotalAnswers,
		CorrectAnswers:    next.CorrectAnswers,
		Momentum:          next.Momentum,
		RecentCorrect:     next.RecentCorrect,
		RecentTotal:       next.RecentTotal,
		StateVersion:      next.StateVersion,
		LastQuestionID:    &req.QuestionID,
		LastAnswerAt:      &now,
	}

	if err := s.states.UpdateIfVersion(ctx, updated, req.StateVersion); err != nil {
		return domain.AnswerResult{}, err
	}
	// A crash between the state commit and this write leaves the dedup record
	// missing; the retry then sees a version conflict and refetches. Accepted
	// at-least-once window, detectable from streak/difficulty in the log.
	if err := s.answers.CreateOnce(ctx, domain.AnswerRecord{
		UserID:             req.UserID,
		QuestionID:         req.QuestionID,
		Answer:             req.Answer,
		Correct:            correct,
		ScoreDelta:         scoreDelta,
		DifficultyAtAnswer: state.CurrentDifficulty,
		StreakAtAnswer:     state.Streak,
		IdempotencyKey:     req.IdempotencyKey,
		AnsweredAt:         now,
	}); err != nil && !errors.Is(err, domain.ErrDuplicateAnswer) {
		return domain.AnswerResult{}, fmt.Errorf("record answer: %w", err)
	}
	s.invalidateState(ctx, req.UserID)

	if err := s.boards.UpdateScore(ctx, req.UserID, updated.TotalScore); err != nil {
		log.Printf("leaderboard score update for %s: %v", req.UserID, err)
	}
	if err := s.boards.UpdateStreak(ctx, req.UserID, updated.MaxStreak); err != nil {
		log.Printf("leaderboard streak update for %s: %v", req.UserID, err)
	}
	s.publishLeaderboards(ctx)

	return s.answerResult(ctx, updated, correct, scoreDelta), nil
}

// answerResult assembles the response from committed state plus rank lookups.
func (s *QuizService) answerResult(ctx context.Context, state domain.UserState, correct bool, scoreDelta float64) domain.AnswerResult {
	result := domain.AnswerResult{
		Correct:       correct,
		NewDifficulty: state.CurrentDifficulty,
		NewStreak:     state.Streak,
		ScoreDelta:    scoreDelta,
		TotalScore:    state.TotalScore,
		StateVersion:  state.StateVersion,
		MaxStreak:     state.MaxStreak,
	}
	if rank, _, err := s.boards.Rank(ctx, domain.LeaderboardScore, state.UserID); err == nil {
		result.RankScore = rank
	}
	if rank, _, err := s.boards.Rank(ctx, domain.LeaderboardStreak, state.UserID); err == nil {
		result.RankStreak = rank
	}
	return result
}

// Metrics projects accuracy, a difficulty histogram, and the recent
// correct/incorrect sequence from the answer log and current state.
func (s *QuizService) Metrics(ctx context.Context, userID string) (domain.Metrics, error) {
	state, err := s.loadState(ctx, userID)
	if err != nil {
		return domain.Metrics{}, err
	}
	records, err := s.answers.ListByUser(ctx, userID, 0)
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("answer log: %w", err)
	}

	histogram := make([]int, 10)
	recent := make([]bool, 0, adaptive.RecentWindow)
	for i, rec := range records {
		bucket := int(math.Round(rec.DifficultyAtAnswer))
		if bucket >= 1 && bucket <= 10 {
			histogram[bucket-1]++
		}
		if i < adaptive.RecentWindow {
			// Records are newest first; present the sequence oldest first.
			recent = append([]bool{rec.Correct}, recent...)
		}
	}

	accuracy := 0
	if state.TotalAnswers > 0 {
		accuracy = int(math.Round(float64(state.CorrectAnswers) / float64(state.TotalAnswers) * 100))
	}

	return domain.Metrics{
		CurrentDifficulty:   state.CurrentDifficulty,
		Streak:              state.Streak,
		MaxStreak:           state.MaxStreak,
		TotalScore:          state.TotalScore,
		Accuracy:            accuracy,
		TotalAnswers:        state.TotalAnswers,
		CorrectAnswers:      state.CorrectAnswers,
		Momentum:            state.Momentum,
		RecentCorrect:       state.RecentCorrect,
		RecentTotal:         state.RecentTotal,
		DifficultyHistogram: histogram,
		RecentPerformance:   recent,
	}, nil
}

// Leaderboard returns the top-N board of the given kind plus the requesting
// user's own rank and value when present.
func (s *QuizService) Leaderboard(ctx context.Context, kind, userID string, limit int) (domain.Leaderboard, error) {
	if limit <= 0 {
		limit = s.topN
	}
	entries, err := s.boards.Top(ctx, kind, limit)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("leaderboard top: %w", err)
	}
	board := domain.Leaderboard{Kind: kind, Entries: entries, UpdatedAt: s.now()}
	if userID != "" {
		rank, value, err := s.boards.Rank(ctx, kind, userID)
		if err != nil {
			return domain.Leaderboard{}, fmt.Errorf("leaderboard rank: %w", err)
		}
		board.UserRank = rank
		board.UserValue = value
	}
	return board, nil
}

// SubscribeLeaderboard returns a channel fed with leaderboard snapshots after
// every committed submission. The caller must invoke cancel to avoid leaks.
func (s *QuizService) SubscribeLeaderboard(_ context.Context) (<-chan domain.Leaderboard, func()) {
	return s.hub.Subscribe()
}

func (s *QuizService) publishLeaderboards(ctx context.Context) {
	if !s.hub.HasSubscribers() {
		return
	}
	for _, kind := range []string{domain.LeaderboardScore, domain.LeaderboardStreak} {
		entries, err := s.boards.Top(ctx, kind, s.topN)
		if err != nil {
			log.Printf("leaderboard snapshot %s: %v", kind, err)
			continue
		}
		s.hub.Publish(domain.Leaderboard{Kind: kind, Entries: entries, UpdatedAt: s.now()})
	}
}

// loadState returns the user's state, consulting the advisory cache first and
// creating the default row on first contact.
func (s *QuizService) loadState(ctx context.Context, userID string) (domain.UserState, error) {
	key := stateCacheKey(userID)
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var state domain.UserState
			if err := json.Unmarshal([]byte(raw), &state); err == nil {
				return state, nil
			}
			// Corrupt cache entry: drop it and fall through to the repository.
			_ = s.cache.Del(ctx, key)
		}
	}

	state, err := s.states.Get(ctx, userID)
	if errors.Is(err, domain.ErrStateNotFound) {
		initial := domain.DefaultUserState(userID)
		initial.CurrentDifficulty = s.defaultDifficulty
		if state, err = s.states.CreateIfAbsent(ctx, initial); err != nil {
			return domain.UserState{}, fmt.Errorf("create state: %w", err)
		}
		if berr := s.boards.UpdateScore(ctx, userID, state.TotalScore); berr != nil {
			log.Printf("seed score board for %s: %v", userID, berr)
		}
		if berr := s.boards.UpdateStreak(ctx, userID, state.MaxStreak); berr != nil {
			log.Printf("seed streak board for %s: %v", userID, berr)
		}
	} else if err != nil {
		return domain.UserState{}, fmt.Errorf("load state: %w", err)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(state); err == nil {
			_ = s.cache.Set(ctx, key, string(raw), s.stateTTL)
		}
	}
	return state, nil
}

func (s *QuizService) invalidateState(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, stateCacheKey(userID)); err != nil {
		log.Printf("invalidate state cache for %s: %v", userID, err)
	}
}
