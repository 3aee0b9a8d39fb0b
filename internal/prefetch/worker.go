package prefetch

import (
	"context"
	"log"

	"github.com/mfarkas/mailward/internal/models"
)

// PageWarmer fetches one folder page so its messages land in the cache.
type PageWarmer interface {
	WarmFolderPage(ctx context.Context, userID string, folder models.Folder, page, pageSize int) error
}

// Notifier is told when a page has been warmed. Used to push cache-ready
// events to connected clients; may be nil.
type Notifier interface {
	FolderWarmed(userID, folder string, page int)
}

// Worker drains the queue and warms pages one request at a time. A failed
// page is logged and skipped; prefetching must never surface errors to users.
type Worker struct {
	queue    *Queue
	warmer   PageWarmer
	notifier Notifier
}

// NewWorker creates a Worker. notifier may be nil.
func NewWorker(queue *Queue, warmer PageWarmer, notifier Notifier) *Worker {
	return &Worker{
		queue:    queue,
		warmer:   warmer,
		notifier: notifier,
	}
}

// Run processes requests until ctx is cancelled or the queue is closed and
// drained. Intended to run as a single goroutine; one consumer guarantees
// each request is processed at most once.
func (w *Worker) Run(ctx context.Context) {
	log.Println("Prefetch: Worker started")

	for {
		req, ok := w.queue.Dequeue(ctx)
		if !ok {
			log.Println("Prefetch: Worker stopped")
			return
		}
		w.process(ctx, req)
	}
}

// process warms the requested pages in ascending order so the pages the user
// is most likely to open next are cached first.
func (w *Worker) process(ctx context.Context, req Request) {
	folder, ok := models.ParseFolder(req.Folder)
	if !ok {
		log.Printf("Prefetch: Skipping request for unknown folder %q", req.Folder)
		return
	}

	for page := req.StartPage; page < req.StartPage+req.PageCount; page++ {
		if ctx.Err() != nil {
			return
		}

		if err := w.warmer.WarmFolderPage(ctx, req.UserID, folder, page, req.PageSize); err != nil {
			log.Printf("Prefetch: Failed to warm %s page %d for user %s: %v",
				folder, page, req.UserID, err)
			continue
		}

		if w.notifier != nil {
			w.notifier.FolderWarmed(req.UserID, string(folder), page)
		}
	}
}
