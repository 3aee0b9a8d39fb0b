package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mfarkas/mailward/internal/auth"
	"github.com/mfarkas/mailward/internal/config"
	"github.com/stretchr/testify/assert"
)

// testOAuthConfig is a provider configuration for tests that build a real
// flow handler. The endpoints are never dialed.
var testOAuthConfig = config.Config{
	OAuthProviderID:   "test-provider",
	OAuthClientID:     "test-client",
	OAuthClientSecret: "test-secret",
	OAuthAuthURL:      "https://login.example.com/authorize",
	OAuthTokenURL:     "https://login.example.com/token",
	OAuthRedirectURL:  "https://mail.example.com/callback",
	OAuthScopes:       []string{"mail.read", "mail.send"},
}

// createRequestWithUser creates an HTTP request with the user's identity in context.
func createRequestWithUser(method, url, subject, email string) *http.Request {
	return createRequestWithUserAndBody(method, url, subject, email, nil)
}

// createRequestWithUserAndBody creates an HTTP request with a body and the
// user's identity in context.
func createRequestWithUserAndBody(method, url, subject, email string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, subject)
	ctx = context.WithValue(ctx, auth.UserEmailKey, email)
	return req.WithContext(ctx)
}

// FailingResponseWriter is a ResponseWriter that fails on Write to test error handling.
type FailingResponseWriter struct {
	http.ResponseWriter
	WriteShouldFail bool
}

func (f *FailingResponseWriter) Write(p []byte) (int, error) {
	if f.WriteShouldFail {
		return 0, fmt.Errorf("write failed")
	}
	return f.ResponseWriter.Write(p)
}

// VerifyAuthCheck verifies that the handler returns 401 Unauthorized when no user is in context.
func VerifyAuthCheck(t *testing.T, handlerFunc http.HandlerFunc, method, url string) {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	rr := httptest.NewRecorder()
	handlerFunc(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected status 401 when no user identity in context")
}
