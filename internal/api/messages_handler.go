package api

import (
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfarkas/mailward/internal/imap"
	"github.com/mfarkas/mailward/internal/models"
	"github.com/mfarkas/mailward/internal/prefetch"
)

// prefetchAhead is how many following pages the handler queues for warming
// after serving a page.
const prefetchAhead = 2

// MessagesHandler handles folder page API requests.
type MessagesHandler struct {
	pool  *pgxpool.Pool
	mail  imap.MailService
	queue *prefetch.Queue
}

// NewMessagesHandler creates a new MessagesHandler instance. queue may be nil
// to disable prefetching.
func NewMessagesHandler(pool *pgxpool.Pool, mail imap.MailService, queue *prefetch.Queue) *MessagesHandler {
	return &MessagesHandler{
		pool:  pool,
		mail:  mail,
		queue: queue,
	}
}

// GetMessages returns a paginated list of messages for a folder, newest
// first. The live server is authoritative; when it cannot be reached, the
// cache serves what it has.
func (h *MessagesHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	folderName := r.URL.Query().Get("folder")
	if folderName == "" {
		http.Error(w, "folder query parameter is required", http.StatusBadRequest)
		return
	}

	folder, ok := models.ParseFolder(folderName)
	if !ok {
		http.Error(w, "unknown folder", http.StatusBadRequest)
		return
	}

	page, limit := ParsePaginationParams(r, 25)

	response, err := h.mail.FetchFolderPage(ctx, userID, folder, page, limit)
	if err != nil {
		log.Printf("MessagesHandler: Live fetch failed for %s page %d, serving cache: %v", folder, page, err)

		response, err = h.mail.GetCachedFolderPage(ctx, userID, folder, page, limit)
		if err != nil {
			log.Printf("MessagesHandler: Cache read failed: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	// Queue the following pages so they are warm by the time the user pages
	// forward. Best-effort; the queue drops what it cannot take.
	if h.queue != nil {
		h.queue.Enqueue(prefetch.Request{
			UserID:    userID,
			Folder:    string(folder),
			StartPage: page + 1,
			PageCount: prefetchAhead,
			PageSize:  limit,
		})
	}

	if !WriteJSONResponse(w, response) {
		return
	}
}
