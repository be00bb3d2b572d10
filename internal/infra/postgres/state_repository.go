package postgres

import (
	"context"
	"errors"
	"fmt"

	"brainbolt-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// StateRepository persists user state in Postgres. The conditional update is
// a single compare-and-swap on state_version.
type StateRepository struct {
	pool *pgxpool.Pool
}

func NewStateRepository(pool *pgxpool.Pool) *StateRepository {
	return &StateRepository{pool: pool}
}

const stateColumns = `user_id, current_difficulty, streak, max_streak, total_score,
	total_answers, correct_answers, momentum, recent_correct, recent_total,
	state_version, last_question_id, last_answer_at`

func (r *StateRepository) Get(ctx context.Context, userID string) (domain.UserState, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+stateColumns+` FROM user_state WHERE user_id=$1`, userID)
	state, err := scanState(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserState{}, domain.ErrStateNotFound
	}
	if err != nil {
		return domain.UserState{}, fmt.Errorf("select state: %w", err)
	}
	return state, nil
}

func (r *StateRepository) CreateIfAbsent(ctx context.Context, state domain.UserState) (domain.UserState, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_state (`+stateColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (user_id) DO NOTHING`,
		state.UserID, state.CurrentDifficulty, state.Streak, state.MaxStreak, state.TotalScore,
		state.TotalAnswers, state.CorrectAnswers, state.Momentum, state.RecentCorrect, state.RecentTotal,
		state.StateVersion, state.LastQuestionID, state.LastAnswerAt)
	if err != nil {
		return domain.UserState{}, fmt.Errorf("insert state: %w", err)
	}
	// Return whichever row is persisted, ours or a concurrent creator's.
	return r.Get(ctx, state.UserID)
}

func (r *StateRepository) UpdateIfVersion(ctx context.Context, state domain.UserState, expectedVersion int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_state SET
			current_difficulty=$2, streak=$3, max_streak=$4, total_score=$5,
			total_answers=$6, correct_answers=$7, momentum=$8, recent_correct=$9,
			recent_total=$10, state_version=$11, last_question_id=$12,
			last_answer_at=$13, updated_at=now()
		WHERE user_id=$1 AND state_version=$14`,
		state.UserID, state.CurrentDifficulty, state.Streak, state.MaxStreak, state.TotalScore,
		state.TotalAnswers, state.CorrectAnswers, state.Momentum, state.RecentCorrect,
		state.RecentTotal, state.StateVersion, state.LastQuestionID, state.LastAnswerAt,
		expectedVersion)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func scanState(row pgx.Row) (domain.UserState, error) {
	var state domain.UserState
	err := row.Scan(
		&state.UserID, &state.CurrentDifficulty, &state.Streak, &state.MaxStreak, &state.TotalScore,
		&state.TotalAnswers, &state.CorrectAnswers, &state.Momentum, &state.RecentCorrect, &state.RecentTotal,
		&state.StateVersion, &state.LastQuestionID, &state.LastAnswerAt)
	return state, err
}
