package http

import (
	"log"
	"net/http"

	"brainbolt-quiz-service/internal/app"
	"brainbolt-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams leaderboard snapshots to websocket clients.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeLeaderboard upgrades the connection, sends the current board, and then
// forwards hub snapshots for the requested kind until the client disconnects.
func (h *WSHandler) ServeLeaderboard(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = domain.LeaderboardScore
	}
	if kind != domain.LeaderboardScore && kind != domain.LeaderboardStreak {
		http.Error(w, "unknown leaderboard kind", http.StatusBadRequest)
		return
	}

	initial, err := h.service.Leaderboard(r.Context(), kind, r.URL.Query().Get("userId"), 0)
	if err != nil {
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.SubscribeLeaderboard(r.Context())
	defer cancel()

	// Reader goroutine only detects disconnects; clients send nothing.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: initial}); err != nil {
		return
	}

	for {
		select {
		case board, ok := <-updates:
			if !ok {
				return
			}
			if board.Kind != kind {
				continue
			}
			if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: board}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-disconnected:
			return
		case <-r.Context().Done():
			return
		}
	}
}
