package oauth

import (
	"context"

	"github.com/mfarkas/mailward/internal/models"
)

// Flow defines the token-lifecycle operations the HTTP layer depends on.
// This interface allows handlers to be tested with mock implementations.
type Flow interface {
	// BuildAuthorizationURL returns the authorization URL plus the PKCE
	// verifier and anti-CSRF state the session layer must persist.
	BuildAuthorizationURL() (authURL, codeVerifier, state string)

	// ExchangeCode performs the authorization-code grant.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*models.TokenSet, error)

	// Refresh performs the refresh-token grant, preserving the supplied
	// refresh token when the provider omits a new one.
	Refresh(ctx context.Context, refreshToken string) (*models.TokenSet, error)

	// StoreTokens encrypts and persists a token set for the user.
	StoreTokens(ctx context.Context, userID, emailAddress string, tokens *models.TokenSet) error

	// RevokeTokens clears stored tokens; idempotent.
	RevokeTokens(ctx context.Context, userID string) error
}

// Ensure FlowHandler implements the Flow interface
var _ Flow = (*FlowHandler)(nil)
