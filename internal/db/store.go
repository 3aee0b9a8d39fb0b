package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfarkas/mailward/internal/models"
)

// Store is a thin adapter over the package-level query functions so that
// packages depending on account or cache lookups can declare small interfaces
// and be tested without a database.
type Store struct {
	pool       *pgxpool.Pool
	providerID string
}

// NewStore creates a Store bound to one mail provider.
func NewStore(pool *pgxpool.Pool, providerID string) *Store {
	return &Store{pool: pool, providerID: providerID}
}

// FindAccountByUser returns the user's account for the store's provider.
func (s *Store) FindAccountByUser(ctx context.Context, userID string) (*models.Account, error) {
	return FindAccountByUser(ctx, s.pool, userID, s.providerID)
}

// UpsertAccount writes the account, forcing the store's provider id.
func (s *Store) UpsertAccount(ctx context.Context, account *models.Account) error {
	account.ProviderID = s.providerID
	return UpsertAccount(ctx, s.pool, account)
}

// SaveMessage writes a message into the folder page cache.
func (s *Store) SaveMessage(ctx context.Context, message *models.Message) error {
	return SaveCachedMessage(ctx, s.pool, message)
}

// GetFolderPage reads one cached folder page, newest first.
func (s *Store) GetFolderPage(ctx context.Context, userID, folder string, limit, offset int) ([]*models.Message, error) {
	return GetCachedFolderPage(ctx, s.pool, userID, folder, limit, offset)
}

// GetMessageCount returns the cached message count for a folder.
func (s *Store) GetMessageCount(ctx context.Context, userID, folder string) (int, error) {
	return GetCachedMessageCount(ctx, s.pool, userID, folder)
}
