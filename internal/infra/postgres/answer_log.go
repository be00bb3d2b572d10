package postgres

import (
	"context"
	"errors"
	"fmt"

	"brainbolt-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AnswerLog stores one row per accepted submission. The primary key on
// (user_id, idempotency_key) is the dedup guard.
type AnswerLog struct {
	pool *pgxpool.Pool
}

func NewAnswerLog(pool *pgxpool.Pool) *AnswerLog {
	return &AnswerLog{pool: pool}
}

func (l *AnswerLog) Get(ctx context.Context, userID, idempotencyKey string) (domain.AnswerRecord, bool, error) {
	var rec domain.AnswerRecord
	err := l.pool.QueryRow(ctx, `
		SELECT user_id, question_id, answer, correct, score_delta,
			difficulty_at_answer, streak_at_answer, idempotency_key, answered_at
		FROM answer_log WHERE user_id=$1 AND idempotency_key=$2`,
		userID, idempotencyKey).Scan(
		&rec.UserID, &rec.QuestionID, &rec.Answer, &rec.Correct, &rec.ScoreDelta,
		&rec.DifficultyAtAnswer, &rec.StreakAtAnswer, &rec.IdempotencyKey, &rec.AnsweredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AnswerRecord{}, false, nil
	}
	if err != nil {
		return domain.AnswerRecord{}, false, fmt.Errorf("select answer record: %w", err)
	}
	return rec, true, nil
}

func (l *AnswerLog) CreateOnce(ctx context.Context, record domain.AnswerRecord) error {
	tag, err := l.pool.Exec(ctx, `
		INSERT INTO answer_log (user_id, question_id, answer, correct, score_delta,
			difficulty_at_answer, streak_at_answer, idempotency_key, answered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (user_id, idempotency_key) DO NOTHING`,
		record.UserID, record.QuestionID, record.Answer, record.Correct, record.ScoreDelta,
		record.DifficultyAtAnswer, record.StreakAtAnswer, record.IdempotencyKey, record.AnsweredAt)
	if err != nil {
		return fmt.Errorf("insert answer record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateAnswer
	}
	return nil
}

func (l *AnswerLog) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AnswerRecord, error) {
	query := `
		SELECT user_id, question_id, answer, correct, score_delta,
			difficulty_at_answer, streak_at_answer, idempotency_key, answered_at
		FROM answer_log WHERE user_id=$1 ORDER BY answered_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select answer log: %w", err)
	}
	defer rows.Close()

	var out []domain.AnswerRecord
	for rows.Next() {
		var rec domain.AnswerRecord
		if err := rows.Scan(
			&rec.UserID, &rec.QuestionID, &rec.Answer, &rec.Correct, &rec.ScoreDelta,
			&rec.DifficultyAtAnswer, &rec.StreakAtAnswer, &rec.IdempotencyKey, &rec.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan answer record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
