package models

import (
	"time"
)

// User represents a Mailward user, keyed by the identity provider's subject.
type User struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Account holds a user's credentials for one mail provider.
// Tokens are stored encrypted only; the plaintext never touches the database
// and must never be logged.
type Account struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id"`
	ProviderID            string     `json:"provider_id"`
	EmailAddress          string     `json:"email_address"`
	EncryptedAccessToken  []byte     `json:"-"`
	EncryptedRefreshToken []byte     `json:"-"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	Scopes                []string   `json:"scopes"`
	IsActive              bool       `json:"is_active"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// HasAccessToken reports whether the account has a stored access token.
// A non-empty access token is always paired with an expiry timestamp.
func (a *Account) HasAccessToken() bool {
	return len(a.EncryptedAccessToken) > 0 && a.ExpiresAt != nil
}

// TokenSet is the result of a token-endpoint grant (code exchange or refresh).
// ExpiresIn is the provider-declared lifetime in seconds.
type TokenSet struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresIn    int64    `json:"expires_in"`
	Scopes       []string `json:"scopes,omitempty"`
}

// AuthStatusResponse represents the credential status of a user.
type AuthStatusResponse struct {
	IsAuthenticated    bool `json:"isAuthenticated"`
	HasValidToken      bool `json:"hasValidToken"`
	NeedsAuthorization bool `json:"needsAuthorization"`
}

// AuthorizationURLResponse carries everything the frontend session layer must
// persist to complete the authorization-code flow.
type AuthorizationURLResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
	CodeVerifier     string `json:"code_verifier"`
}
