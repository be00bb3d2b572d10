package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"brainbolt-quiz-service/internal/app"
	"brainbolt-quiz-service/internal/domain"
)

// Handler exposes the quiz use cases over REST. Authentication, rate limiting,
// and TLS are the reverse proxy's problem.
type Handler struct {
	service *app.QuizService
}

func NewHandler(service *app.QuizService) *Handler {
	return &Handler{service: service}
}

// Register wires the REST routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/quiz/next", h.handleNext)
	mux.HandleFunc("/v1/quiz/answer", h.handleAnswer)
	mux.HandleFunc("/v1/quiz/metrics", h.handleMetrics)
	mux.HandleFunc("/v1/leaderboard/score", h.leaderboardHandler(domain.LeaderboardScore))
	mux.HandleFunc("/v1/leaderboard/streak", h.leaderboardHandler(domain.LeaderboardStreak))
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}
	next, err := h.service.NextQuestion(r.Context(), userID, r.URL.Query().Get("sessionId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

type answerRequest struct {
	UserID         string `json:"userId"`
	SessionID      string `json:"sessionId"`
	QuestionID     string `json:"questionId"`
	Answer         string `json:"answer"`
	StateVersion   int64  `json:"stateVersion"`
	IdempotencyKey string `json:"answerIdempotencyKey"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.QuestionID == "" || req.Answer == "" || req.IdempotencyKey == "" || req.StateVersion < 1 {
		writeError(w, http.StatusBadRequest, "missing or invalid fields")
		return
	}
	result, err := h.service.SubmitAnswer(r.Context(), app.SubmitRequest{
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		QuestionID:     req.QuestionID,
		Answer:         req.Answer,
		StateVersion:   req.StateVersion,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}
	metrics, err := h.service.Metrics(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (h *Handler) leaderboardHandler(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = parsed
		}
		board, err := h.service.Leaderboard(r.Context(), kind, r.URL.Query().Get("userId"), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, "state version conflict, refresh and retry")
	case errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrStateNotFound),
		errors.Is(err, domain.ErrNoQuestions):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
