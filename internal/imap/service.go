package imap

import (
	"context"
	"fmt"
	"log"

	imapclient "github.com/emersion/go-imap/client"
	"github.com/mfarkas/mailward/internal/credentials"
	"github.com/mfarkas/mailward/internal/models"
)

// MessageCache is the persistence surface for warmed folder pages.
type MessageCache interface {
	SaveMessage(ctx context.Context, message *models.Message) error
	GetFolderPage(ctx context.Context, userID, folder string, limit, offset int) ([]*models.Message, error)
	GetMessageCount(ctx context.Context, userID, folder string) (int, error)
}

// Service fetches folder pages over IMAP and keeps the page cache warm.
type Service struct {
	clientPool *Pool
	resolver   *credentials.Resolver
	cache      MessageCache
	hostname   string
	useTLS     bool
}

// NewService creates a new IMAP service.
// useTLS: true for production (TLS), false for tests (non-TLS).
func NewService(resolver *credentials.Resolver, cache MessageCache, hostname string, useTLS bool) *Service {
	return &Service{
		clientPool: NewPool(),
		resolver:   resolver,
		cache:      cache,
		hostname:   hostname,
		useTLS:     useTLS,
	}
}

// connect dials the server and authenticates as the user. An OAuth access
// token authenticates via XOAUTH2; a fallback password via LOGIN. The
// resolver hands out the token as the login secret when one is valid, so
// comparing the two tells the mechanisms apart.
func (s *Service) connect(ctx context.Context, userID string) (*imapclient.Client, error) {
	username, secret, err := s.resolver.GetCredentials(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}

	token, tokenErr := s.resolver.GetAccessToken(ctx, userID)

	c, err := ConnectToIMAP(s.hostname, s.useTLS)
	if err != nil {
		return nil, err
	}

	if tokenErr == nil && token == secret {
		err = AuthenticateXOAUTH2(c, username, token)
	} else {
		err = Login(c, username, secret)
	}
	if err != nil {
		_ = c.Logout()
		return nil, err
	}

	return c, nil
}

// getClientAndSelectFolder gets the user's pooled connection and selects the
// folder's mailbox. The returned release function must be called when done.
func (s *Service) getClientAndSelectFolder(ctx context.Context, userID string, folder models.Folder) (*imapclient.Client, func(), uint32, error) {
	c, release, err := s.clientPool.Get(userID, func() (*imapclient.Client, error) {
		return s.connect(ctx, userID)
	})
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to get IMAP client: %w", err)
	}

	mbox, err := c.Select(folder.Mailbox(), true)
	if err != nil {
		release()
		// A failed SELECT often means the connection is dead; drop it so the
		// next call dials fresh.
		s.clientPool.Remove(userID)
		return nil, nil, 0, fmt.Errorf("failed to select folder %s: %w", folder, err)
	}

	return c, release, mbox.Messages, nil
}

// FetchFolderPage fetches one page of a folder from the server, newest first,
// and writes the messages through to the cache.
func (s *Service) FetchFolderPage(ctx context.Context, userID string, folder models.Folder, page, pageSize int) (*models.MessagesResponse, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("page and pageSize must be positive")
	}

	c, release, total, err := s.getClientAndSelectFolder(ctx, userID, folder)
	if err != nil {
		return nil, err
	}

	imapMessages, err := FetchPage(c, total, page, pageSize)
	release()
	if err != nil {
		return nil, err
	}

	messages := make([]*models.Message, 0, len(imapMessages))
	for _, imapMsg := range imapMessages {
		msg, err := ParseMessage(imapMsg, userID, folder)
		if err != nil {
			log.Printf("IMAP: Failed to parse message UID %d in %s: %v", imapMsg.Uid, folder, err)
			continue
		}
		messages = append(messages, msg)

		if err := s.cache.SaveMessage(ctx, msg); err != nil {
			// The live response is still complete; only the cache is stale.
			log.Printf("IMAP: Failed to cache message UID %d in %s: %v", msg.IMAPUID, folder, err)
		}
	}

	return &models.MessagesResponse{
		Messages: messages,
		Pagination: models.PaginationInfo{
			TotalCount: int(total),
			Page:       page,
			PerPage:    pageSize,
		},
	}, nil
}

// WarmFolderPage fetches one page so its messages land in the cache. Used by
// the prefetch worker; the result itself is discarded.
func (s *Service) WarmFolderPage(ctx context.Context, userID string, folder models.Folder, page, pageSize int) error {
	_, err := s.FetchFolderPage(ctx, userID, folder, page, pageSize)
	return err
}

// GetCachedFolderPage serves one folder page from the cache without touching
// the server. Used when the live fetch fails.
func (s *Service) GetCachedFolderPage(ctx context.Context, userID string, folder models.Folder, page, pageSize int) (*models.MessagesResponse, error) {
	offset := (page - 1) * pageSize
	messages, err := s.cache.GetFolderPage(ctx, userID, string(folder), pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached page: %w", err)
	}

	total, err := s.cache.GetMessageCount(ctx, userID, string(folder))
	if err != nil {
		return nil, fmt.Errorf("failed to count cached messages: %w", err)
	}

	if messages == nil {
		messages = []*models.Message{}
	}

	return &models.MessagesResponse{
		Messages: messages,
		Pagination: models.PaginationInfo{
			TotalCount: total,
			Page:       page,
			PerPage:    pageSize,
		},
	}, nil
}

// RemoveClient drops the user's pooled connection, forcing the next call to
// authenticate fresh. Called after token revocation.
func (s *Service) RemoveClient(userID string) {
	s.clientPool.Remove(userID)
}

// Close closes the service and cleans up connections.
func (s *Service) Close() {
	s.clientPool.Close()
}
