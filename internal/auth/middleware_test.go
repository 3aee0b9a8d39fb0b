package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireAuth(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			t.Error("Expected user ID in context")
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(userID))
		if err != nil {
			t.Errorf("Failed to write response: %v", err)
			return
		}
	})

	authHandler := RequireAuth(handler)

	validToken := makeToken(t, map[string]any{
		"sub":   "user-123",
		"email": "user@example.com",
	})

	t.Run("allows request with valid Bearer token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rr.Code)
		}
		if rr.Body.String() != "user-123" {
			t.Errorf("Expected body 'user-123', got %q", rr.Body.String())
		}
	})

	t.Run("scheme is case-insensitive", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "bearer "+validToken)

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rr.Code)
		}
	})

	t.Run("rejects request without Authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rr.Code)
		}
	})

	t.Run("rejects request with invalid Authorization format", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "InvalidFormat")

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rr.Code)
		}
	})

	t.Run("rejects request with wrong auth scheme", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Basic abcd_abcd_abcd")

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rr.Code)
		}
	})

	t.Run("rejects empty token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer ")

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rr.Code)
		}
	})

	t.Run("rejects undecodable token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")

		rr := httptest.NewRecorder()
		authHandler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rr.Code)
		}
	})
}

func TestGetUserIDFromContext(t *testing.T) {
	t.Run("returns ID and email when present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer "+makeToken(t, map[string]any{
			"sub":   "user-123",
			"email": "user@example.com",
		}))

		handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok || userID != "user-123" {
				t.Errorf("Expected user ID 'user-123', got %q (ok=%v)", userID, ok)
			}
			email, ok := GetUserEmailFromContext(r.Context())
			if !ok || email != "user@example.com" {
				t.Errorf("Expected email 'user@example.com', got %q (ok=%v)", email, ok)
			}
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
	})

	t.Run("returns false when not present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)

		userID, ok := GetUserIDFromContext(req.Context())
		if ok {
			t.Error("Expected ok to be false")
		}
		if userID != "" {
			t.Error("Expected empty user ID")
		}
	})
}
