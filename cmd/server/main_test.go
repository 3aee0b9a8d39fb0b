package main

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mfarkas/mailward/internal/config"
	"github.com/mfarkas/mailward/internal/testutil"
)

func getTestConfig() *config.Config {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	return &config.Config{
		Environment:         "test",
		EncryptionKeyBase64: base64.StdEncoding.EncodeToString(key),
		Port:                "8080",
		Timezone:            "UTC",
		OAuthProviderID:     "test-provider",
		OAuthClientID:       "test-client",
		OAuthClientSecret:   "test-secret",
		OAuthAuthURL:        "https://login.example.com/authorize",
		OAuthTokenURL:       "https://login.example.com/token",
		OAuthRedirectURL:    "https://mail.example.com/callback",
		IMAPServerHostname:  "localhost:1143",
		SMTPServerHostname:  "localhost:1587",
		FallbackUsername:    "username",
		FallbackPassword:    "password",
	}
}

func TestHandleRoot(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handleRoot(w, req)

	res := w.Result()
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			t.Fatalf("failed to close response body: %v", err)
		}
	}(res.Body)

	if res.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", res.StatusCode)
	}

	contentType := res.Header.Get("Content-Type")
	if contentType != "text/plain" {
		t.Errorf("expected Content-Type 'text/plain', got '%s'", contentType)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	expected := "Mailward API is running"
	if string(body) != expected {
		t.Errorf("expected body '%s', got '%s'", expected, string(body))
	}
}

func TestNewApp(t *testing.T) {
	cfg := getTestConfig()
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	app, err := NewApp(cfg, pool)
	if err != nil {
		t.Fatalf("NewApp() failed: %v", err)
	}
	defer app.Close()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	app.Handler().ServeHTTP(w, req)

	res := w.Result()
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			t.Fatalf("failed to close response body: %v", err)
		}
	}(res.Body)

	if res.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	expected := "Mailward API is running"
	if string(body) != expected {
		t.Errorf("expected body '%s', got '%s'", expected, string(body))
	}
}

func TestRouteAuthIsEnforced(t *testing.T) {
	cfg := getTestConfig()
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	app, err := NewApp(cfg, pool)
	if err != nil {
		t.Fatalf("NewApp() failed: %v", err)
	}
	defer app.Close()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/auth/url"},
		{http.MethodPost, "/api/v1/auth/callback"},
		{http.MethodPost, "/api/v1/auth/revoke"},
		{http.MethodGet, "/api/v1/auth/status"},
		{http.MethodGet, "/api/v1/messages?folder=inbox"},
		{http.MethodPost, "/api/v1/messages/send"},
	}

	for _, route := range routes {
		req := httptest.NewRequest(route.method, route.path, nil)
		w := httptest.NewRecorder()

		app.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected status 401 without a token, got %d", route.method, route.path, w.Code)
		}
	}
}

func TestRouteMethodRestrictions(t *testing.T) {
	cfg := getTestConfig()
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	app, err := NewApp(cfg, pool)
	if err != nil {
		t.Fatalf("NewApp() failed: %v", err)
	}
	defer app.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages/send", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.MakeIdentityToken(t, "sub-main", "main@example.com"))
	w := httptest.NewRecorder()

	app.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405 for GET on a POST route, got %d", w.Code)
	}
}
