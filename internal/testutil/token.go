package testutil

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

// MakeIdentityToken builds an unsigned JWT-shaped bearer token carrying the
// given subject and email claims. The server trusts its identity-aware proxy
// and decodes claims without verifying the signature, so tests can mint
// tokens directly.
func MakeIdentityToken(t *testing.T, subject, email string) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))

	claims := map[string]string{"sub": subject}
	if email != "" {
		claims["email"] = email
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("failed to encode claims: %v", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadJSON)

	return header + "." + payload + ".signature"
}
