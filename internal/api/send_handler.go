package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfarkas/mailward/internal/models"
)

// MessageSender submits an outgoing message for a user.
type MessageSender interface {
	Send(ctx context.Context, userID string, req *models.SendMessageRequest) error
}

// SendHandler handles the outgoing message API.
type SendHandler struct {
	pool   *pgxpool.Pool
	sender MessageSender
}

// NewSendHandler creates a new SendHandler instance.
func NewSendHandler(pool *pgxpool.Pool, sender MessageSender) *SendHandler {
	return &SendHandler{
		pool:   pool,
		sender: sender,
	}
}

// SendMessage submits a message over SMTP as the authenticated user.
func (h *SendHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.To) == 0 {
		http.Error(w, "at least one recipient is required", http.StatusBadRequest)
		return
	}

	if err := h.sender.Send(ctx, userID, &req); err != nil {
		log.Printf("SendHandler: Failed to send message for user %s: %v", userID, err)
		http.Error(w, "Failed to send message", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "sent"}); err != nil {
		log.Printf("SendHandler: Failed to write response: %v", err)
	}
}
