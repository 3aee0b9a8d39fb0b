package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfarkas/mailward/internal/models"
)

// SaveCachedMessage saves or updates a cached message for a folder page.
func SaveCachedMessage(ctx context.Context, pool *pgxpool.Pool, message *models.Message) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO message_cache (
			user_id,
			folder,
			imap_uid,
			from_address,
			to_addresses,
			subject,
			sent_at,
			body_text,
			is_read
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, folder, imap_uid) DO UPDATE SET
			from_address = EXCLUDED.from_address,
			to_addresses = EXCLUDED.to_addresses,
			subject = EXCLUDED.subject,
			sent_at = EXCLUDED.sent_at,
			body_text = CASE WHEN EXCLUDED.body_text <> '' THEN EXCLUDED.body_text ELSE message_cache.body_text END,
			is_read = EXCLUDED.is_read,
			updated_at = NOW()
		RETURNING id
	`,
		message.UserID,
		message.Folder,
		message.IMAPUID,
		message.FromAddress,
		message.ToAddresses,
		message.Subject,
		message.SentAt,
		message.BodyText,
		message.IsRead,
	).Scan(&message.ID)

	if err != nil {
		return fmt.Errorf("failed to save cached message: %w", err)
	}

	return nil
}

// GetCachedFolderPage returns one page of cached messages for a folder, newest first.
func GetCachedFolderPage(ctx context.Context, pool *pgxpool.Pool, userID, folder string, limit, offset int) ([]*models.Message, error) {
	rows, err := pool.Query(ctx, `
		SELECT
			id,
			user_id,
			folder,
			imap_uid,
			from_address,
			to_addresses,
			subject,
			sent_at,
			body_text,
			is_read,
			created_at,
			updated_at
		FROM message_cache
		WHERE user_id = $1 AND folder = $2
		ORDER BY imap_uid DESC
		LIMIT $3 OFFSET $4
	`, userID, folder, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get cached messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.UserID,
			&msg.Folder,
			&msg.IMAPUID,
			&msg.FromAddress,
			&msg.ToAddresses,
			&msg.Subject,
			&msg.SentAt,
			&msg.BodyText,
			&msg.IsRead,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cached message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cached messages: %w", err)
	}

	return messages, nil
}

// GetCachedMessageCount returns the number of cached messages in a folder.
func GetCachedMessageCount(ctx context.Context, pool *pgxpool.Pool, userID, folder string) (int, error) {
	var count int
	err := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM message_cache WHERE user_id = $1 AND folder = $2
	`, userID, folder).Scan(&count)

	if err != nil {
		return 0, fmt.Errorf("failed to count cached messages: %w", err)
	}

	return count, nil
}
