package imap

import (
	"fmt"
	"io"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/mfarkas/mailward/internal/models"
)

// ParseMessage converts an IMAP message to our Message model.
func ParseMessage(imapMsg *imap.Message, userID string, folder models.Folder) (*models.Message, error) {
	if imapMsg == nil {
		return nil, fmt.Errorf("imap message is nil")
	}

	isRead := false
	for _, flag := range imapMsg.Flags {
		if flag == imap.SeenFlag {
			isRead = true
		}
	}

	msg := &models.Message{
		UserID:  userID,
		Folder:  string(folder),
		IMAPUID: int64(imapMsg.Uid),
		IsRead:  isRead,
	}

	if imapMsg.Envelope != nil {
		if len(imapMsg.Envelope.From) > 0 {
			msg.FromAddress = formatAddress(imapMsg.Envelope.From[0])
		}

		msg.ToAddresses = formatAddressList(imapMsg.Envelope.To)
		msg.Subject = imapMsg.Envelope.Subject
		if !imapMsg.Envelope.Date.IsZero() {
			msg.SentAt = &imapMsg.Envelope.Date
		}
	}

	// Parse body if available
	if imapMsg.Body != nil {
		section := &imap.BodySectionName{Peek: true}
		bodyReader := imapMsg.GetBody(section)
		if bodyReader == nil {
			// Some servers answer a PEEK fetch under the plain section name.
			bodyReader = imapMsg.GetBody(&imap.BodySectionName{})
		}
		if bodyReader != nil {
			if err := parseBody(bodyReader, msg); err != nil {
				// Log error but don't fail - we still have headers
				_ = err
			}
		}
	}

	return msg, nil
}

// parseBody extracts the plain-text body using enmime.
func parseBody(bodyReader io.Reader, msg *models.Message) error {
	envelope, err := enmime.ReadEnvelope(bodyReader)
	if err != nil {
		return fmt.Errorf("failed to parse email body: %w", err)
	}

	msg.BodyText = envelope.Text
	return nil
}

// formatAddress formats an IMAP address to a string.
func formatAddress(address *imap.Address) string {
	if address == nil {
		return ""
	}

	if address.MailboxName == "" && address.HostName == "" {
		return ""
	}

	if address.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", address.PersonalName, address.MailboxName, address.HostName)
	}

	return fmt.Sprintf("%s@%s", address.MailboxName, address.HostName)
}

// formatAddressList formats a list of IMAP addresses.
func formatAddressList(addresses []*imap.Address) []string {
	result := make([]string, 0, len(addresses))
	for _, address := range addresses {
		formatted := formatAddress(address)
		if formatted != "" {
			result = append(result, formatted)
		}
	}
	return result
}
