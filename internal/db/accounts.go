package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfarkas/mailward/internal/models"
)

// ErrAccountNotFound is returned when no provider account exists for a user.
var ErrAccountNotFound = errors.New("account not found")

// GetOrCreateUser returns the user's id for the given identity subject.
// If no user exists with that subject, it creates a new one.
func GetOrCreateUser(ctx context.Context, pool *pgxpool.Pool, subject, email string) (string, error) {
	var userID string

	err := pool.QueryRow(ctx, `
		INSERT INTO users (subject, email)
		VALUES ($1, $2)
		ON CONFLICT (subject) DO UPDATE SET email = EXCLUDED.email
		RETURNING id
	`, subject, email).Scan(&userID)

	if err != nil {
		return "", fmt.Errorf("failed to get or create user: %w", err)
	}

	return userID, nil
}

// FindAccountByUser returns the provider account for the given user and provider.
func FindAccountByUser(ctx context.Context, pool *pgxpool.Pool, userID, providerID string) (*models.Account, error) {
	var account models.Account

	err := pool.QueryRow(ctx, `
		SELECT
			id,
			user_id,
			provider_id,
			email_address,
			encrypted_access_token,
			encrypted_refresh_token,
			expires_at,
			scopes,
			is_active,
			created_at,
			updated_at
		FROM accounts
		WHERE user_id = $1 AND provider_id = $2
	`, userID, providerID).Scan(
		&account.ID,
		&account.UserID,
		&account.ProviderID,
		&account.EmailAddress,
		&account.EncryptedAccessToken,
		&account.EncryptedRefreshToken,
		&account.ExpiresAt,
		&account.Scopes,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// UpsertAccount inserts or updates the provider account for (user, provider).
// Token columns hold ciphertext only; plaintext tokens never reach this layer.
func UpsertAccount(ctx context.Context, pool *pgxpool.Pool, account *models.Account) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO accounts (
			user_id,
			provider_id,
			email_address,
			encrypted_access_token,
			encrypted_refresh_token,
			expires_at,
			scopes,
			is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, provider_id) DO UPDATE SET
			email_address = EXCLUDED.email_address,
			encrypted_access_token = EXCLUDED.encrypted_access_token,
			encrypted_refresh_token = EXCLUDED.encrypted_refresh_token,
			expires_at = EXCLUDED.expires_at,
			scopes = EXCLUDED.scopes,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING id
	`,
		account.UserID,
		account.ProviderID,
		account.EmailAddress,
		account.EncryptedAccessToken,
		account.EncryptedRefreshToken,
		account.ExpiresAt,
		account.Scopes,
		account.IsActive,
	).Scan(&account.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	return nil
}
