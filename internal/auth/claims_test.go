package auth

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

// makeToken builds an unsigned JWT-shaped token carrying the given claims.
func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))

	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("Failed to marshal claims: %v", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadJSON)

	return header + "." + payload + ".signature"
}

func TestDecodeClaims(t *testing.T) {
	t.Run("extracts subject and email", func(t *testing.T) {
		token := makeToken(t, map[string]any{
			"sub":   "user-123",
			"email": "user@example.com",
			"iss":   "https://login.example.com",
		})

		claims, err := DecodeClaims(token)
		if err != nil {
			t.Fatalf("DecodeClaims failed: %v", err)
		}
		if claims.Subject != "user-123" {
			t.Errorf("Expected subject 'user-123', got %q", claims.Subject)
		}
		if claims.Email != "user@example.com" {
			t.Errorf("Expected email 'user@example.com', got %q", claims.Email)
		}
	})

	t.Run("email is optional", func(t *testing.T) {
		token := makeToken(t, map[string]any{"sub": "user-123"})

		claims, err := DecodeClaims(token)
		if err != nil {
			t.Fatalf("DecodeClaims failed: %v", err)
		}
		if claims.Email != "" {
			t.Errorf("Expected empty email, got %q", claims.Email)
		}
	})

	t.Run("rejects token without subject", func(t *testing.T) {
		token := makeToken(t, map[string]any{"email": "user@example.com"})

		if _, err := DecodeClaims(token); err == nil {
			t.Error("Expected error for token without subject")
		}
	})

	t.Run("rejects non-JWT token", func(t *testing.T) {
		for _, token := range []string{"", "opaque-token", "a.b", "a.b.c.d"} {
			if _, err := DecodeClaims(token); err == nil {
				t.Errorf("Expected error for token %q", token)
			}
		}
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		if _, err := DecodeClaims("h.!!!not-base64!!!.s"); err == nil {
			t.Error("Expected error for undecodable payload")
		}

		garbage := base64.RawURLEncoding.EncodeToString([]byte("not json"))
		if _, err := DecodeClaims("h." + garbage + ".s"); err == nil {
			t.Error("Expected error for non-JSON payload")
		}
	})
}
