// Package oauth implements the authorization-code + PKCE flow against the
// mail provider's OAuth server and persists the resulting tokens, encrypted,
// into the account store.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mfarkas/mailward/internal/config"
	"github.com/mfarkas/mailward/internal/credentials"
	"github.com/mfarkas/mailward/internal/db"
	"github.com/mfarkas/mailward/internal/models"
	"golang.org/x/oauth2"
)

// ErrAuthenticationFailed signals that the provider rejected a code exchange
// or refresh. The caller decides whether to restart the authorization flow;
// no internal retry happens.
var ErrAuthenticationFailed = errors.New("authentication failed")

// The stored validity window of an access token is shortened by this buffer
// so a credential resolved as "valid" cannot expire mid-flight during a slow
// downstream call. Tokens shorter than the buffer keep a minimal window.
const expiryBuffer = 60 * time.Second

// AccountStore is the persistence surface the flow handler needs.
type AccountStore interface {
	FindAccountByUser(ctx context.Context, userID string) (*models.Account, error)
	UpsertAccount(ctx context.Context, account *models.Account) error
}

// FlowHandler drives the OAuth token lifecycle for one provider:
// NoToken -> PendingAuthorization -> Authorized -> Expired -> Refreshing -> Authorized | Revoked.
type FlowHandler struct {
	oauthConfig *oauth2.Config
	store       AccountStore
	resolver    *credentials.Resolver
	scopes      []string
	now         func() time.Time
}

// NewFlowHandler creates a FlowHandler from the provider settings in cfg.
func NewFlowHandler(cfg *config.Config, store AccountStore, resolver *credentials.Resolver) *FlowHandler {
	return &FlowHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       cfg.OAuthScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthURL,
				TokenURL: cfg.OAuthTokenURL,
				// The provider expects client_id and client_secret in the
				// form-encoded body of token requests.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:    store,
		resolver: resolver,
		scopes:   cfg.OAuthScopes,
		now:      time.Now,
	}
}

// BuildAuthorizationURL returns the provider authorization URL together with
// the PKCE code verifier and the anti-CSRF state value. The caller must
// persist both against the browsing session and validate state on return.
func (h *FlowHandler) BuildAuthorizationURL() (authURL, codeVerifier, state string) {
	codeVerifier = oauth2.GenerateVerifier()
	state = uuid.NewString()
	authURL = h.oauthConfig.AuthCodeURL(state, oauth2.S256ChallengeOption(codeVerifier))
	return authURL, codeVerifier, state
}

// ExchangeCode performs the authorization-code grant with the PKCE verifier.
func (h *FlowHandler) ExchangeCode(ctx context.Context, code, codeVerifier string) (*models.TokenSet, error) {
	token, err := h.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange rejected: %s", ErrAuthenticationFailed, err)
	}

	return h.tokenSetFromToken(token, ""), nil
}

// Refresh performs the refresh-token grant. If the provider's response omits
// a new refresh token, the caller-supplied one is preserved in the result:
// losing it would force a full re-authorization.
func (h *FlowHandler) Refresh(ctx context.Context, refreshToken string) (*models.TokenSet, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refreshToken is required")
	}

	source := h.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh rejected: %s", ErrAuthenticationFailed, err)
	}

	return h.tokenSetFromToken(token, refreshToken), nil
}

// StoreTokens encrypts and persists a token set for the user. The stored
// expiry applies the safety buffer: max(expiresIn-60, 60) seconds from now.
// An omitted refresh token leaves the previously stored one in place.
func (h *FlowHandler) StoreTokens(ctx context.Context, userID, emailAddress string, tokens *models.TokenSet) error {
	if userID == "" {
		return fmt.Errorf("userID is required")
	}
	if tokens == nil || tokens.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}

	account, err := h.store.FindAccountByUser(ctx, userID)
	if err != nil && !errors.Is(err, db.ErrAccountNotFound) {
		return fmt.Errorf("failed to look up account: %w", err)
	}
	if account == nil {
		account = &models.Account{UserID: userID, IsActive: true}
	}
	if emailAddress != "" {
		account.EmailAddress = emailAddress
	}

	encryptedAccess, err := h.resolver.ProtectToken(tokens.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	expiresAt := h.now().Add(effectiveLifetime(tokens.ExpiresIn))
	account.EncryptedAccessToken = encryptedAccess
	account.ExpiresAt = &expiresAt
	account.IsActive = true

	if tokens.RefreshToken != "" {
		encryptedRefresh, err := h.resolver.ProtectRefreshToken(tokens.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		account.EncryptedRefreshToken = encryptedRefresh
	}

	if len(tokens.Scopes) > 0 {
		account.Scopes = tokens.Scopes
	}

	if err := h.store.UpsertAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to store tokens: %w", err)
	}

	return nil
}

// RevokeTokens clears both stored tokens and marks the account as needing
// authorization. Revoking an already-revoked or missing account is a no-op.
func (h *FlowHandler) RevokeTokens(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("userID is required")
	}

	account, err := h.store.FindAccountByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}

	account.EncryptedAccessToken = nil
	account.EncryptedRefreshToken = nil
	account.ExpiresAt = nil

	if err := h.store.UpsertAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}

	return nil
}

// tokenSetFromToken converts an oauth2 token, falling back to the previous
// refresh token when the provider did not rotate it.
func (h *FlowHandler) tokenSetFromToken(token *oauth2.Token, previousRefreshToken string) *models.TokenSet {
	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = previousRefreshToken
	}

	expiresIn := token.ExpiresIn
	if expiresIn == 0 && !token.Expiry.IsZero() {
		expiresIn = int64(time.Until(token.Expiry) / time.Second)
	}

	return &models.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		Scopes:       h.scopes,
	}
}

func effectiveLifetime(expiresIn int64) time.Duration {
	lifetime := time.Duration(expiresIn)*time.Second - expiryBuffer
	if lifetime < expiryBuffer {
		lifetime = expiryBuffer
	}
	return lifetime
}
