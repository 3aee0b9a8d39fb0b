package imap

import (
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// pageRange computes the sequence-number range for one page of a mailbox,
// newest messages first. IMAP sequence numbers grow with age position: the
// highest number is the newest message. Page numbers are 1-based.
// Returns ok=false when the page lies entirely past the end of the mailbox.
func pageRange(total uint32, page, pageSize int) (from, to uint32, ok bool) {
	if total == 0 || page < 1 || pageSize < 1 {
		return 0, 0, false
	}

	top := int64(total) - int64(page-1)*int64(pageSize)
	if top < 1 {
		return 0, 0, false
	}

	bottom := top - int64(pageSize) + 1
	if bottom < 1 {
		bottom = 1
	}

	return uint32(bottom), uint32(top), true
}

// FetchPage fetches one page of messages from the currently selected mailbox,
// newest first. total is the message count reported at SELECT time. Returns
// an empty slice when the page is past the end of the mailbox.
func FetchPage(c *client.Client, total uint32, page, pageSize int) ([]*imap.Message, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	from, to, ok := pageRange(total, page, pageSize)
	if !ok {
		return []*imap.Message{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, to)

	// Fetch envelope, flags, UID, and the full body in one round trip.
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, pageSize)
	done := make(chan error, 1)

	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var result []*imap.Message
	for msg := range messages {
		result = append(result, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	// Servers stream the range in ascending sequence order; reverse so the
	// newest message comes first.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return result, nil
}
