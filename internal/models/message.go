package models

import (
	"time"
)

// Message is a cached mail item for one folder page.
type Message struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Folder      string     `json:"folder"`
	IMAPUID     int64      `json:"imap_uid"`
	FromAddress string     `json:"from_address"`
	ToAddresses []string   `json:"to_addresses"`
	Subject     string     `json:"subject"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	BodyText    string     `json:"body_text,omitempty"`
	IsRead      bool       `json:"is_read"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PaginationInfo describes the page window of a list response.
type PaginationInfo struct {
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
}

// MessagesResponse is the response payload for a folder page.
type MessagesResponse struct {
	Messages   []*Message     `json:"messages"`
	Pagination PaginationInfo `json:"pagination"`
}

// SendMessageRequest is the request payload for sending a message.
type SendMessageRequest struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}
