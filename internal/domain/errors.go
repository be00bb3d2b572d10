package domain

import "errors"

var (
	// ErrStateNotFound is returned when a user has no persisted state row.
	ErrStateNotFound = errors.New("user state not found")
	// ErrVersionConflict signals the optimistic version check failed; the
	// caller must re-fetch state and retry with the latest version.
	ErrVersionConflict = errors.New("state version conflict")
	// ErrQuestionNotFound indicates a submitted question ID is unknown.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestions indicates the repository holds no candidate questions.
	ErrNoQuestions = errors.New("no questions available")
	// ErrDuplicateAnswer is returned by create-once answer log writes when a
	// record with the same (user, idempotency key) already exists.
	ErrDuplicateAnswer = errors.New("answer already recorded")
)
