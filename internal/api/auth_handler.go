package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfarkas/mailward/internal/auth"
	"github.com/mfarkas/mailward/internal/credentials"
	"github.com/mfarkas/mailward/internal/models"
	"github.com/mfarkas/mailward/internal/oauth"
)

// AuthHandler handles OAuth authorization API requests.
type AuthHandler struct {
	pool     *pgxpool.Pool
	flow     oauth.Flow
	resolver *credentials.Resolver
	onRevoke func(userID string)
}

// NewAuthHandler creates a new AuthHandler instance. onRevoke is called after
// a successful revocation to drop cached mail connections; may be nil.
func NewAuthHandler(pool *pgxpool.Pool, flow oauth.Flow, resolver *credentials.Resolver, onRevoke func(userID string)) *AuthHandler {
	return &AuthHandler{
		pool:     pool,
		flow:     flow,
		resolver: resolver,
		onRevoke: onRevoke,
	}
}

// GetAuthorizationURL returns the provider authorization URL along with the
// PKCE verifier and state the client must hold on to for the callback.
func (h *AuthHandler) GetAuthorizationURL(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetUserIDFromContext(r.Context(), w, h.pool); !ok {
		return
	}

	authURL, codeVerifier, state := h.flow.BuildAuthorizationURL()

	WriteJSONResponse(w, models.AuthorizationURLResponse{
		AuthorizationURL: authURL,
		State:            state,
		CodeVerifier:     codeVerifier,
	})
}

// callbackRequest is the body of the authorization callback.
type callbackRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
}

// HandleCallback exchanges the authorization code and stores the resulting
// tokens, encrypted, against the user's account.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" || req.CodeVerifier == "" {
		http.Error(w, "code and code_verifier are required", http.StatusBadRequest)
		return
	}

	tokens, err := h.flow.ExchangeCode(ctx, req.Code, req.CodeVerifier)
	if err != nil {
		log.Printf("AuthHandler: Code exchange failed: %v", err)
		if errors.Is(err, oauth.ErrAuthenticationFailed) {
			http.Error(w, "Authorization failed", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	email, _ := auth.GetUserEmailFromContext(ctx)
	if err := h.flow.StoreTokens(ctx, userID, email, tokens); err != nil {
		log.Printf("AuthHandler: Failed to store tokens: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, h.statusFor(r, userID))
}

// RevokeTokens clears the user's stored tokens. Revoking an account that has
// nothing stored succeeds.
func (h *AuthHandler) RevokeTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	if err := h.flow.RevokeTokens(ctx, userID); err != nil {
		log.Printf("AuthHandler: Failed to revoke tokens: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if h.onRevoke != nil {
		h.onRevoke(userID)
	}

	WriteJSONResponse(w, h.statusFor(r, userID))
}

// GetAuthStatus reports the user's credential state.
func (h *AuthHandler) GetAuthStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context(), w, h.pool)
	if !ok {
		return
	}

	WriteJSONResponse(w, h.statusFor(r, userID))
}

// statusFor derives the credential state from what the resolver can produce.
// A token that fails to decrypt counts as absent and forces re-authorization.
func (h *AuthHandler) statusFor(r *http.Request, userID string) models.AuthStatusResponse {
	ctx := r.Context()

	_, accessErr := h.resolver.GetAccessToken(ctx, userID)
	hasValidToken := accessErr == nil
	if accessErr != nil && !errors.Is(accessErr, credentials.ErrNoCredentials) && !errors.Is(accessErr, credentials.ErrTokenDecrypt) {
		log.Printf("AuthHandler: Failed to resolve access token: %v", accessErr)
	}

	_, refreshErr := h.resolver.GetRefreshToken(ctx, userID)
	hasRefreshToken := refreshErr == nil

	isAuthenticated := hasValidToken || hasRefreshToken
	return models.AuthStatusResponse{
		IsAuthenticated:    isAuthenticated,
		HasValidToken:      hasValidToken,
		NeedsAuthorization: !isAuthenticated,
	}
}
