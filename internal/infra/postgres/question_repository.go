package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"brainbolt-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionRepository loads question content from Postgres. Choices are stored
// as a JSONB array.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, difficulty, prompt, choices, correct_answer, category
		FROM questions WHERE id=$1`, id)
	question, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("select question: %w", err)
	}
	return question, nil
}

func (r *QuestionRepository) QuestionsInBand(ctx context.Context, minDifficulty, maxDifficulty int) ([]domain.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, difficulty, prompt, choices, correct_answer, category
		FROM questions WHERE difficulty BETWEEN $1 AND $2`, minDifficulty, maxDifficulty)
	if err != nil {
		return nil, fmt.Errorf("select band: %w", err)
	}
	defer rows.Close()
	return collectQuestions(rows)
}

func (r *QuestionRepository) SampleQuestions(ctx context.Context, limit int) ([]domain.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, difficulty, prompt, choices, correct_answer, category
		FROM questions ORDER BY random() LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	defer rows.Close()
	return collectQuestions(rows)
}

// UpsertQuestions loads question content, replacing existing rows by id. Used
// by the seed command.
func (r *QuestionRepository) UpsertQuestions(ctx context.Context, questions []domain.Question) error {
	for _, q := range questions {
		choices, err := json.Marshal(q.Choices)
		if err != nil {
			return fmt.Errorf("marshal choices for %s: %w", q.ID, err)
		}
		if _, err := r.pool.Exec(ctx, `
			INSERT INTO questions (id, difficulty, prompt, choices, correct_answer, category)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO UPDATE SET
				difficulty=EXCLUDED.difficulty, prompt=EXCLUDED.prompt,
				choices=EXCLUDED.choices, correct_answer=EXCLUDED.correct_answer,
				category=EXCLUDED.category`,
			q.ID, q.Difficulty, q.Prompt, choices, q.CorrectAnswer, q.Category); err != nil {
			return fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}
	return nil
}

func collectQuestions(rows pgx.Rows) ([]domain.Question, error) {
	var out []domain.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, question)
	}
	return out, rows.Err()
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	var choices []byte
	if err := row.Scan(&q.ID, &q.Difficulty, &q.Prompt, &choices, &q.CorrectAnswer, &q.Category); err != nil {
		return domain.Question{}, err
	}
	if err := json.Unmarshal(choices, &q.Choices); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal choices: %w", err)
	}
	return q, nil
}
