package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfarkas/mailward/internal/auth"
	"github.com/mfarkas/mailward/internal/db"
	ws "github.com/mfarkas/mailward/internal/websocket"
)

// WebSocketHandler handles the /api/v1/ws endpoint for real-time updates,
// such as cache-warming notifications from the prefetch worker.
type WebSocketHandler struct {
	pool *pgxpool.Pool
	hub  *ws.Hub
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(pool *pgxpool.Pool, hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		pool: pool,
		hub:  hub,
	}
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// For now, allow all origins. This server is expected to be used
		// behind a reverse proxy in a trusted environment.
		return true
	},
}

// Handle upgrades the HTTP connection to a WebSocket and registers it with the Hub.
// Authentication is handled via query parameter (?token=...) since WebSocket connections
// cannot set custom headers in browsers. The token is decoded using the same DecodeClaims
// function used by the RequireAuth middleware.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Extract token from query parameter (WebSocket connections can't set headers).
	token := r.URL.Query().Get("token")
	if token == "" {
		// Fallback to Authorization header if query parameter is not provided.
		// This allows testing with tools that can set headers.
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			fields := strings.Fields(authHeader)
			if len(fields) >= 2 && strings.EqualFold(fields[0], "Bearer") {
				token = strings.TrimSpace(strings.Join(fields[1:], " "))
			}
		}
	}

	if token == "" {
		log.Printf("WebSocketHandler: No token provided (neither query parameter nor Authorization header)")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := auth.DecodeClaims(token)
	if err != nil {
		log.Printf("WebSocketHandler: Token decoding failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := db.GetOrCreateUser(ctx, h.pool, claims.Subject, claims.Email)
	if err != nil {
		log.Printf("WebSocketHandler: Failed to get/create user: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocketHandler: failed to upgrade connection for user %s: %v", userID, err)
		return
	}

	client := h.hub.Register(userID, conn)
	if client == nil {
		log.Printf("WebSocketHandler: Connection rejected for user %s (max connections exceeded)", userID)
		return
	}

	// Read loop to keep the connection open and detect disconnects.
	go h.readLoop(userID, client)
}

// readLoop reads messages from the WebSocket until the connection is closed,
// then unregisters the client.
func (h *WebSocketHandler) readLoop(userID string, client *ws.Client) {
	conn := client.Conn()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.hub.Unregister(userID, client)
}
