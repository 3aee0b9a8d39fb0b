// Package credentials resolves the best currently usable mail credential for
// a user: a decrypted, non-expired OAuth access token, or a statically
// configured fallback username/password. It performs no network calls.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mfarkas/mailward/internal/crypto"
	"github.com/mfarkas/mailward/internal/db"
	"github.com/mfarkas/mailward/internal/models"
)

// ErrNoCredentials signals that neither a valid token nor a fallback
// credential is available. It is the normal "re-authenticate" outcome,
// not an exceptional one.
var ErrNoCredentials = errors.New("no usable credentials")

// ErrTokenDecrypt signals that a stored token could not be decrypted
// (corruption or key rotation mismatch). The account must be forced back to
// the needs-authorization state.
var ErrTokenDecrypt = errors.New("stored token cannot be decrypted")

// AccountStore is the read side of the account persistence layer.
type AccountStore interface {
	FindAccountByUser(ctx context.Context, userID string) (*models.Account, error)
}

// Fallback is a statically configured provider credential for environments
// where OAuth is unavailable.
type Fallback struct {
	Username string
	Password string
}

// Resolver resolves credentials from encrypted local state.
type Resolver struct {
	store     AccountStore
	protector *crypto.Protector
	fallback  *Fallback
	now       func() time.Time
}

// NewResolver creates a Resolver. fallback may be nil when no static
// credential is configured.
func NewResolver(store AccountStore, protector *crypto.Protector, fallback *Fallback) *Resolver {
	return &Resolver{
		store:     store,
		protector: protector,
		fallback:  fallback,
		now:       time.Now,
	}
}

// GetAccessToken returns the decrypted access token for the user.
// Returns ErrNoCredentials if there is no account, no stored access token, or
// the token has expired. This is a pure read with no side effects.
func (r *Resolver) GetAccessToken(ctx context.Context, userID string) (string, error) {
	account, err := r.findAccount(ctx, userID)
	if err != nil {
		return "", err
	}

	if !r.hasValidAccessToken(account) {
		return "", ErrNoCredentials
	}

	token, err := r.protector.Unprotect(crypto.PurposeAccessToken, account.EncryptedAccessToken)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTokenDecrypt, err)
	}

	return token, nil
}

// GetCredentials returns a (username, secret) pair usable for a protocol
// login. A valid access token wins; otherwise the configured fallback
// credential is used, keeping the account's mailbox address as username when
// one is known. Returns ErrNoCredentials when neither path yields a credential.
func (r *Resolver) GetCredentials(ctx context.Context, userID string) (string, string, error) {
	if userID == "" {
		return "", "", fmt.Errorf("userID is required")
	}

	account, err := r.store.FindAccountByUser(ctx, userID)
	if err != nil && !isNotFound(err) {
		return "", "", fmt.Errorf("failed to look up account: %w", err)
	}

	if account != nil && r.hasValidAccessToken(account) {
		token, err := r.protector.Unprotect(crypto.PurposeAccessToken, account.EncryptedAccessToken)
		if err != nil {
			return "", "", fmt.Errorf("%w: %s", ErrTokenDecrypt, err)
		}
		return account.EmailAddress, token, nil
	}

	if r.fallback != nil {
		username := r.fallback.Username
		if account != nil && account.EmailAddress != "" {
			username = account.EmailAddress
		}
		return username, r.fallback.Password, nil
	}

	return "", "", ErrNoCredentials
}

// GetRefreshToken returns the decrypted refresh token regardless of
// access-token expiry, for use by the OAuth flow handler.
func (r *Resolver) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	account, err := r.findAccount(ctx, userID)
	if err != nil {
		return "", err
	}

	if len(account.EncryptedRefreshToken) == 0 {
		return "", ErrNoCredentials
	}

	token, err := r.protector.Unprotect(crypto.PurposeRefreshToken, account.EncryptedRefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTokenDecrypt, err)
	}

	return token, nil
}

// ProtectToken encrypts an access token for storage.
func (r *Resolver) ProtectToken(plaintext string) ([]byte, error) {
	return r.protector.Protect(crypto.PurposeAccessToken, plaintext)
}

// ProtectRefreshToken encrypts a refresh token for storage.
func (r *Resolver) ProtectRefreshToken(plaintext string) ([]byte, error) {
	return r.protector.Protect(crypto.PurposeRefreshToken, plaintext)
}

func (r *Resolver) findAccount(ctx context.Context, userID string) (*models.Account, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}

	account, err := r.store.FindAccountByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	return account, nil
}

// hasValidAccessToken reports whether the account holds a non-expired access
// token. The stored expiry already includes the safety buffer applied at
// store time, so a plain comparison suffices.
func (r *Resolver) hasValidAccessToken(account *models.Account) bool {
	if !account.HasAccessToken() {
		return false
	}
	return r.now().Before(*account.ExpiresAt)
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrAccountNotFound)
}
