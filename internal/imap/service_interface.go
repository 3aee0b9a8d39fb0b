package imap

import (
	"context"

	"github.com/mfarkas/mailward/internal/models"
)

// MailService defines the interface for folder page operations.
// This interface allows handlers to be tested with mock implementations.
type MailService interface {
	// FetchFolderPage fetches one page of a folder from the server, newest
	// first, writing the messages through to the cache.
	FetchFolderPage(ctx context.Context, userID string, folder models.Folder, page, pageSize int) (*models.MessagesResponse, error)

	// WarmFolderPage fetches one page so its messages land in the cache.
	WarmFolderPage(ctx context.Context, userID string, folder models.Folder, page, pageSize int) error

	// GetCachedFolderPage serves one folder page from the cache.
	GetCachedFolderPage(ctx context.Context, userID string, folder models.Folder, page, pageSize int) (*models.MessagesResponse, error)

	// RemoveClient drops the user's pooled connection.
	RemoveClient(userID string)

	// Close closes the service and cleans up connections.
	Close()
}

// Ensure Service implements MailService interface
var _ MailService = (*Service)(nil)
