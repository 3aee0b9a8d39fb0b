package auth

import (
	"context"
	"log"
	"net/http"
	"strings"
)

type contextKey string

// UserIDKey is the context key used to store the authenticated user's stable ID.
const UserIDKey contextKey = "user_id"

// UserEmailKey is the context key used to store the authenticated user's email.
const UserEmailKey contextKey = "user_email"

// RequireAuth middleware checks for a valid bearer token in the Authorization header.
// It decodes the identity claims and stores the user's ID and email in the request
// context for use by downstream handlers. Returns 401 Unauthorized if authentication fails.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if authHeader == "" {
			log.Println("Auth: No Authorization header present")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Parse Authorization header: "Bearer <token>" (RFC 7235)
		// Use strings.Fields to handle multiple spaces and trim whitespace
		// Bearer scheme is case-insensitive per RFC 7235
		fields := strings.Fields(authHeader)
		if len(fields) < 2 {
			log.Println("Auth: Invalid Authorization header format")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Check if the scheme is "Bearer" (case-insensitive)
		if !strings.EqualFold(fields[0], "Bearer") {
			log.Println("Auth: Invalid Authorization header format")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		token := strings.TrimSpace(strings.Join(fields[1:], " "))
		if token == "" {
			log.Println("Auth: Empty token after Bearer")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := DecodeClaims(token)
		if err != nil {
			log.Printf("Auth: Token decoding failed: %v", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.Subject)
		ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext returns the authenticated user's ID from the context.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUserEmailFromContext returns the user email from the context.
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)
	return email, ok
}
