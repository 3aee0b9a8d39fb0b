package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mfarkas/mailward/internal/models"
	"github.com/mfarkas/mailward/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateUser(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	t.Run("creates a new user", func(t *testing.T) {
		userID, err := GetOrCreateUser(ctx, pool, "sub-create", "create@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, userID)
	})

	t.Run("returns the same id for the same subject", func(t *testing.T) {
		first, err := GetOrCreateUser(ctx, pool, "sub-repeat", "repeat@example.com")
		require.NoError(t, err)

		second, err := GetOrCreateUser(ctx, pool, "sub-repeat", "repeat@example.com")
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("updates the email on conflict", func(t *testing.T) {
		first, err := GetOrCreateUser(ctx, pool, "sub-email", "old@example.com")
		require.NoError(t, err)

		second, err := GetOrCreateUser(ctx, pool, "sub-email", "new@example.com")
		require.NoError(t, err)
		assert.Equal(t, first, second)

		var email string
		err = pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, first).Scan(&email)
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", email)
	})

	t.Run("different subjects get different users", func(t *testing.T) {
		a, err := GetOrCreateUser(ctx, pool, "sub-a", "shared@example.com")
		require.NoError(t, err)

		b, err := GetOrCreateUser(ctx, pool, "sub-b", "shared@example.com")
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})
}

func TestFindAccountByUser(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	userID, err := GetOrCreateUser(ctx, pool, "sub-find", "find@example.com")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	t.Run("returns ErrAccountNotFound when no account exists", func(t *testing.T) {
		account, err := FindAccountByUser(ctx, pool, userID, "test-provider")
		assert.Nil(t, account)
		assert.True(t, errors.Is(err, ErrAccountNotFound))
	})

	t.Run("returns the stored account", func(t *testing.T) {
		expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		stored := &models.Account{
			UserID:                userID,
			ProviderID:            "test-provider",
			EmailAddress:          "find@example.com",
			EncryptedAccessToken:  []byte("ciphertext-access"),
			EncryptedRefreshToken: []byte("ciphertext-refresh"),
			ExpiresAt:             &expiresAt,
			Scopes:                []string{"mail.read", "mail.send"},
			IsActive:              true,
		}
		require.NoError(t, UpsertAccount(ctx, pool, stored))

		found, err := FindAccountByUser(ctx, pool, userID, "test-provider")
		require.NoError(t, err)
		assert.Equal(t, stored.ID, found.ID)
		assert.Equal(t, userID, found.UserID)
		assert.Equal(t, "find@example.com", found.EmailAddress)
		assert.Equal(t, []byte("ciphertext-access"), found.EncryptedAccessToken)
		assert.Equal(t, []byte("ciphertext-refresh"), found.EncryptedRefreshToken)
		assert.Equal(t, []string{"mail.read", "mail.send"}, found.Scopes)
		assert.True(t, found.IsActive)
		require.NotNil(t, found.ExpiresAt)
		assert.WithinDuration(t, expiresAt, *found.ExpiresAt, time.Second)
	})

	t.Run("accounts are scoped to a provider", func(t *testing.T) {
		account, err := FindAccountByUser(ctx, pool, userID, "other-provider")
		assert.Nil(t, account)
		assert.True(t, errors.Is(err, ErrAccountNotFound))
	})
}

func TestUpsertAccount(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	userID, err := GetOrCreateUser(ctx, pool, "sub-upsert", "upsert@example.com")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	t.Run("updates in place on conflict", func(t *testing.T) {
		account := &models.Account{
			UserID:               userID,
			ProviderID:           "test-provider",
			EmailAddress:         "upsert@example.com",
			EncryptedAccessToken: []byte("first"),
			IsActive:             true,
		}
		require.NoError(t, UpsertAccount(ctx, pool, account))
		firstID := account.ID
		require.NotEmpty(t, firstID)

		account.EncryptedAccessToken = []byte("second")
		account.IsActive = false
		require.NoError(t, UpsertAccount(ctx, pool, account))
		assert.Equal(t, firstID, account.ID)

		found, err := FindAccountByUser(ctx, pool, userID, "test-provider")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), found.EncryptedAccessToken)
		assert.False(t, found.IsActive)
	})

	t.Run("clears tokens when set to nil", func(t *testing.T) {
		expiresAt := time.Now().Add(time.Hour)
		account := &models.Account{
			UserID:                userID,
			ProviderID:            "revoke-provider",
			EmailAddress:          "upsert@example.com",
			EncryptedAccessToken:  []byte("access"),
			EncryptedRefreshToken: []byte("refresh"),
			ExpiresAt:             &expiresAt,
			IsActive:              true,
		}
		require.NoError(t, UpsertAccount(ctx, pool, account))

		account.EncryptedAccessToken = nil
		account.EncryptedRefreshToken = nil
		account.ExpiresAt = nil
		account.IsActive = false
		require.NoError(t, UpsertAccount(ctx, pool, account))

		found, err := FindAccountByUser(ctx, pool, userID, "revoke-provider")
		require.NoError(t, err)
		assert.Empty(t, found.EncryptedAccessToken)
		assert.Empty(t, found.EncryptedRefreshToken)
		assert.Nil(t, found.ExpiresAt)
		assert.False(t, found.HasAccessToken())
	})
}

func TestStore(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	userID, err := GetOrCreateUser(ctx, pool, "sub-store", "store@example.com")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	store := NewStore(pool, "store-provider")

	t.Run("forces the configured provider on writes", func(t *testing.T) {
		account := &models.Account{
			UserID:       userID,
			ProviderID:   "ignored-provider",
			EmailAddress: "store@example.com",
			IsActive:     true,
		}
		require.NoError(t, store.UpsertAccount(ctx, account))
		assert.Equal(t, "store-provider", account.ProviderID)

		found, err := store.FindAccountByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "store-provider", found.ProviderID)
	})
}
