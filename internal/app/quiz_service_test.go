package app_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"brainbolt-quiz-service/internal/app"
	"brainbolt-quiz-service/internal/domain"
	"brainbolt-quiz-service/internal/infra/memory"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q2", Difficulty: 2, Prompt: "two", Choices: []string{"a", "b"}, CorrectAnswer: "a", Category: "t"},
		{ID: "q3a", Difficulty: 3, Prompt: "three a", Choices: []string{"a", "b"}, CorrectAnswer: "b", Category: "t"},
		{ID: "q3b", Difficulty: 3, Prompt: "three b", Choices: []string{"a", "b"}, CorrectAnswer: "a", Category: "t"},
		{ID: "q4", Difficulty: 4, Prompt: "four", Choices: []string{"a", "b"}, CorrectAnswer: "b", Category: "t"},
	}
}

type testEnv struct {
	service *app.QuizService
	states  *memory.StateRepository
	cache   *memory.Cache
}

func newTestEnv(questions []domain.Question) testEnv {
	states := memory.NewStateRepository()
	cache := memory.NewCacheWithClock(func() time.Time { return testNow })
	service := app.NewQuizServiceWithClock(
		states,
		memory.NewQuestionRepository(questions),
		memory.NewAnswerLog(),
		memory.NewLeaderboard(),
		cache,
		func() time.Time { return testNow },
		rand.New(rand.NewSource(1)),
	)
	return testEnv{service: service, states: states, cache: cache}
}

func TestNextQuestionCreatesDefaultState(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	next, err := env.service.NextQuestion(ctx, "u1", "")
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if next.StateVersion != 1 || next.CurrentDifficulty != 3 {
		t.Fatalf("expected fresh default state, got %+v", next)
	}
	if next.SessionID == "" {
		t.Fatalf("expected generated session id")
	}
	// Default difficulty 3: the exact-match preference must pick a level-3 question.
	if next.Difficulty != 3 {
		t.Fatalf("expected difficulty-3 question, got %d (%s)", next.Difficulty, next.QuestionID)
	}
}

func TestNextQuestionKeepsCallerSessionID(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	next, err := env.service.NextQuestion(ctx, "u1", "sess-42")
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if next.SessionID != "sess-42" {
		t.Fatalf("session id replaced: %s", next.SessionID)
	}
}

func TestNextQuestionExcludesLastQuestion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	last := "q3a"
	state := domain.DefaultUserState("u1")
	state.LastQuestionID = &last
	if _, err := env.states.CreateIfAbsent(ctx, state); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	for i := 0; i < 20; i++ {
		next, err := env.service.NextQuestion(ctx, "u1", "s")
		if err != nil {
			t.Fatalf("next question: %v", err)
		}
		if next.QuestionID == "q3a" {
			t.Fatalf("served the previous question again")
		}
		if next.QuestionID != "q3b" {
			t.Fatalf("exact-difficulty preference broken, got %s", next.QuestionID)
		}
	}
}

func TestNextQuestionFallsBackToSample(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	state := domain.DefaultUserState("u1")
	state.CurrentDifficulty = 9 // band 8-10 is empty in the fixture
	if _, err := env.states.CreateIfAbsent(ctx, state); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	next, err := env.service.NextQuestion(ctx, "u1", "s")
	if err != nil {
		t.Fatalf("expected sample fallback, got %v", err)
	}
	if next.QuestionID == "" {
		t.Fatalf("empty question from fallback")
	}
}

func TestNextQuestionNoQuestions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(nil)

	if _, err := env.service.NextQuestion(ctx, "u1", "s"); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestNextQuestionAppliesStreakDecay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	last := testNow.Add(-65 * time.Minute)
	state := domain.DefaultUserState("u1")
	state.Streak = 8
	state.LastAnswerAt = &last
	if _, err := env.states.CreateIfAbsent(ctx, state); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	next, err := env.service.NextQuestion(ctx, "u1", "s")
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if next.CurrentStreak != 2 { // floor(8 * 0.5^2)
		t.Fatalf("expected decayed streak 2, got %d", next.CurrentStreak)
	}
	if next.StateVersion != 2 {
		t.Fatalf("decay must bump the version once, got %d", next.StateVersion)
	}

	persisted, err := env.states.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if persisted.Streak != 2 || persisted.StateVersion != 2 {
		t.Fatalf("decay not committed: %+v", persisted)
	}
}

func TestSubmitAnswerCorrect(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	next, err := env.service.NextQuestion(ctx, "u1", "")
	if err != nil {
		t.Fatalf("next question: %v", err)
	}

	result, err := env.service.SubmitAnswer(ctx, app.SubmitRequest{
		UserID:         "u1",
		SessionID:      next.SessionID,
		QuestionID:     "q3a",
		Answer:         "b",
		StateVersion:   next.StateVersion,
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Correct || result.ScoreDelta != 30 {
		t.Fatalf("expected 30 points for first correct answer at difficulty 3, got %+v", result)
	}
	if result.NewStreak != 1 || result.MaxStreak != 1 {
		t.Fatalf("streak bookkeeping wrong: %+v", result)
	}
	if result.StateVersion != next.StateVersion+1 {
		t.Fatalf("version must advance by one, got %d", result.StateVersion)
	}
	if result.RankScore == nil || *result.RankScore != 1 {
		t.Fatalf("expected score rank 1, got %v", result.RankScore)
	}
}

func TestSubmitAnswerIncorrect(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	next, _ := env.service.NextQuestion(ctx, "u1", "")
	result, err := env.service.SubmitAnswer(ctx, app.SubmitRequest{
		UserID:         "u1",
		QuestionID:     "q3a",
		Answer:         "a",
		StateVersion:   next.StateVersion,
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Correct || result.ScoreDelta != 0 || result.NewStreak != 0 {
		t.Fatalf("expected zero-point miss, got %+v", result)
	}
}

func TestSubmitAnswerIdempotentReplay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	next, _ := env.service.NextQuestion(ctx, "u1", "")
	req := app.SubmitRequest{
		UserID:         "u1",
		QuestionID:     "q3a",
		Answer:         "b",
		StateVersion:   next.StateVersion,
		IdempotencyKey: "key-1",
	}

	first, err := env.service.SubmitAnswer(ctx, req)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	// Client retry storm: same key, even with a now-stale expected version.
	second, err := env.service.SubmitAnswer(ctx, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if second.ScoreDelta != first.ScoreDelta || second.NewDifficulty != first.NewDifficulty || second.StateVersion != first.StateVersion {
		t.Fatalf("replay diverged: first=%+v second=%+v", first, second)
	}

	metrics, err := env.service.Metrics(ctx, "u1")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if metrics.TotalAnswers != 1 {
		t.Fatalf("replay must not re-count, total answers = %d", metrics.TotalAnswers)
	}
}

func TestSubmitAnswerVersionConflict(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	next, _ := env.service.NextQuestion(ctx, "u1", "")
	if _, err := env.service.SubmitAnswer(ctx, app.SubmitRequest{
		UserID: "u1", QuestionID: "q3a", Answer: "b",
		StateVersion: next.StateVersion, IdempotencyKey: "key-1",
	}); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := env.service.SubmitAnswer(ctx, app.SubmitRequest{
		UserID: "u1", QuestionID: "q3b", Answer: "a",
		StateVersion: next.StateVersion, IdempotencyKey: "key-2",
	})
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

func TestSubmitAnswerConcurrentSameVersionOneWinner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	next, _ := env.service.NextQuestion(ctx, "u1", "")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, key := range []string{"key-a", "key-b"} {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			_, errs[i] = env.service.SubmitAnswer(ctx, app.SubmitRequest{
				UserID: "u1", QuestionID: "q3a", Answer: "b",
				StateVersion: next.StateVersion, IdempotencyKey: key,
			})
		}(i, key)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrVersionConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if conflicts != 1 {
		t.Fatalf("expected exactly one loser, got %d conflicts", conflicts)
	}

	state, err := env.states.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.TotalAnswers != 1 || state.StateVersion != next.StateVersion+1 {
		t.Fatalf("exactly one submission must apply: %+v", state)
	}
}

func TestSubmitAnswerUnknownQuestion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	next, _ := env.service.NextQuestion(ctx, "u1", "")
	_, err := env.service.SubmitAnswer(ctx, app.SubmitRequest{
		UserID: "u1", QuestionID: "missing", Answer: "b",
		StateVersion: next.StateVersion, IdempotencyKey: "key-1",
	})
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestSubmitAnswerInvalidatesStateCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	next, _ := env.service.NextQuestion(ctx, "u1", "")
	if _, ok, _ := env.cache.Get(ctx, "user:state:u1"); !ok {
		t.Fatalf("expected state cached after fetch")
	}

	if _, err := env.service.SubmitAnswer(ctx, app.SubmitRequest{
		UserID: "u1", QuestionID: "q3a", Answer: "b",
		StateVersion: next.StateVersion, IdempotencyKey: "key-1",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, ok, _ := env.cache.Get(ctx, "user:state:u1"); ok {
		t.Fatalf("cache entry must be invalidated by the commit")
	}
}

func TestMetricsProjection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	next, _ := env.service.NextQuestion(ctx, "u1", "")
	if _, err := env.service.SubmitAnswer(ctx, app.SubmitRequest{
		UserID: "u1", QuestionID: "q3a", Answer: "b",
		StateVersion: next.StateVersion, IdempotencyKey: "key-1",
	}); err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	if _, err := env.service.SubmitAnswer(ctx, app.SubmitRequest{
		UserID: "u1", QuestionID: "q3b", Answer: "b", // wrong
		StateVersion: next.StateVersion + 1, IdempotencyKey: "key-2",
	}); err != nil {
		t.Fatalf("submit 2: %v", err)
	}

	metrics, err := env.service.Metrics(ctx, "u1")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if metrics.TotalAnswers != 2 || metrics.CorrectAnswers != 1 || metrics.Accuracy != 50 {
		t.Fatalf("accuracy projection wrong: %+v", metrics)
	}
	if metrics.DifficultyHistogram[2] != 2 { // both answered at difficulty 3
		t.Fatalf("histogram wrong: %v", metrics.DifficultyHistogram)
	}
	want := []bool{true, false} // oldest first
	if len(metrics.RecentPerformance) != 2 || metrics.RecentPerformance[0] != want[0] || metrics.RecentPerformance[1] != want[1] {
		t.Fatalf("recent performance wrong: %v", metrics.RecentPerformance)
	}
}

func TestLeaderboardView(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	for _, user := range []string{"u1", "u2"} {
		next, _ := env.service.NextQuestion(ctx, user, "")
		if _, err := env.service.SubmitAnswer(ctx, app.SubmitRequest{
			UserID: user, QuestionID: "q3a", Answer: "b",
			StateVersion: next.StateVersion, IdempotencyKey: "key-" + user,
		}); err != nil {
			t.Fatalf("submit %s: %v", user, err)
		}
	}

	board, err := env.service.Leaderboard(ctx, domain.LeaderboardScore, "u2", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board.Entries))
	}
	if board.UserRank == nil || board.UserValue == nil || *board.UserValue != 30 {
		t.Fatalf("user rank/value missing: %+v", board)
	}
}

func TestLeaderboardHubReceivesSnapshots(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testQuestions())

	updates, cancel := env.service.SubscribeLeaderboard(ctx)
	defer cancel()

	next, _ := env.service.NextQuestion(ctx, "u1", "")
	if _, err := env.service.SubmitAnswer(ctx, app.SubmitRequest{
		UserID: "u1", QuestionID: "q3a", Answer: "b",
		StateVersion: next.StateVersion, IdempotencyKey: "key-1",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	kinds := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case board := <-updates:
			kinds[board.Kind] = true
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for snapshot %d", i)
		}
	}
	if !kinds[domain.LeaderboardScore] || !kinds[domain.LeaderboardStreak] {
		t.Fatalf("expected both board kinds, got %v", kinds)
	}
}

func TestWithDefaultDifficultyAppliesToNewUsers(t *testing.T) {
	ctx := context.Background()
	service := app.NewQuizServiceWithClock(
		memory.NewStateRepository(),
		memory.NewQuestionRepository(testQuestions()),
		memory.NewAnswerLog(),
		memory.NewLeaderboard(),
		nil,
		func() time.Time { return testNow },
		rand.New(rand.NewSource(1)),
		app.WithDefaultDifficulty(4),
	)

	next, err := service.NextQuestion(ctx, "u1", "")
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if next.CurrentDifficulty != 4 {
		t.Fatalf("configured starting difficulty ignored: %+v", next)
	}
	// Exact-difficulty preference should land on the level-4 question.
	if next.QuestionID != "q4" {
		t.Fatalf("expected difficulty-4 question, got %s", next.QuestionID)
	}
}

func TestWithLeaderboardSizeCapsDefaultView(t *testing.T) {
	ctx := context.Background()
	service := app.NewQuizServiceWithClock(
		memory.NewStateRepository(),
		memory.NewQuestionRepository(testQuestions()),
		memory.NewAnswerLog(),
		memory.NewLeaderboard(),
		nil,
		func() time.Time { return testNow },
		rand.New(rand.NewSource(1)),
		app.WithLeaderboardSize(2),
	)

	for _, user := range []string{"u1", "u2", "u3"} {
		if _, err := service.NextQuestion(ctx, user, ""); err != nil {
			t.Fatalf("next for %s: %v", user, err)
		}
	}

	board, err := service.Leaderboard(ctx, domain.LeaderboardScore, "", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 2 {
		t.Fatalf("expected board capped at 2 entries, got %d", len(board.Entries))
	}
}

func TestWithStateTTLControlsCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := testNow
	clock := func() time.Time { return now }
	states := memory.NewStateRepository()
	cache := memory.NewCacheWithClock(clock)
	service := app.NewQuizServiceWithClock(
		states,
		memory.NewQuestionRepository(testQuestions()),
		memory.NewAnswerLog(),
		memory.NewLeaderboard(),
		cache,
		clock,
		rand.New(rand.NewSource(1)),
		app.WithStateTTL(10*time.Second),
	)

	if _, err := service.NextQuestion(ctx, "u1", ""); err != nil {
		t.Fatalf("next question: %v", err)
	}

	// Bump the repository behind the cache's back.
	state, err := states.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	updated := state
	updated.Streak = 7
	updated.StateVersion = state.StateVersion + 1
	if err := states.UpdateIfVersion(ctx, updated, state.StateVersion); err != nil {
		t.Fatalf("update state: %v", err)
	}

	metrics, err := service.Metrics(ctx, "u1")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if metrics.Streak != 0 {
		t.Fatalf("expected cached state inside TTL, got streak %d", metrics.Streak)
	}

	now = now.Add(11 * time.Second)
	metrics, err = service.Metrics(ctx, "u1")
	if err != nil {
		t.Fatalf("metrics after expiry: %v", err)
	}
	if metrics.Streak != 7 {
		t.Fatalf("expected repository state after TTL, got streak %d", metrics.Streak)
	}
}
