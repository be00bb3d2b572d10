package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"brainbolt-quiz-service/internal/domain"
)

func TestAnswerLogCreateOnce(t *testing.T) {
	ctx := context.Background()
	logRepo := NewAnswerLog()

	record := domain.AnswerRecord{
		UserID:         "u1",
		QuestionID:     "q1",
		Answer:         "Paris",
		Correct:        true,
		ScoreDelta:     30,
		IdempotencyKey: "key-1",
		AnsweredAt:     time.Now(),
	}
	if err := logRepo.CreateOnce(ctx, record); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := logRepo.CreateOnce(ctx, record); !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	got, found, err := logRepo.Get(ctx, "u1", "key-1")
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if got.ScoreDelta != 30 || !got.Correct {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Same key for another user is a distinct record.
	record.UserID = "u2"
	if err := logRepo.CreateOnce(ctx, record); err != nil {
		t.Fatalf("create for other user: %v", err)
	}
}

func TestAnswerLogListNewestFirst(t *testing.T) {
	ctx := context.Background()
	logRepo := NewAnswerLog()

	for i, key := range []string{"k1", "k2", "k3"} {
		rec := domain.AnswerRecord{UserID: "u1", QuestionID: "q1", IdempotencyKey: key, ScoreDelta: float64(i)}
		if err := logRepo.CreateOnce(ctx, rec); err != nil {
			t.Fatalf("create %s: %v", key, err)
		}
	}

	records, err := logRepo.ListByUser(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 || records[0].IdempotencyKey != "k3" {
		t.Fatalf("expected newest first, got %+v", records)
	}

	limited, _ := logRepo.ListByUser(ctx, "u1", 2)
	if len(limited) != 2 {
		t.Fatalf("expected limit 2, got %d", len(limited))
	}
}
