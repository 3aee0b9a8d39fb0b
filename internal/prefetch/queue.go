// Package prefetch warms the message-page cache in the background. Handlers
// enqueue warm-up requests without blocking; a single worker drains the queue
// and fetches the requested pages so subsequent reads hit the cache.
package prefetch

import (
	"context"
	"log"
	"sync"
)

// Request asks the worker to warm a number of consecutive folder pages
// starting at StartPage.
type Request struct {
	UserID    string
	Folder    string
	StartPage int
	PageCount int
	PageSize  int
}

// Queue is an unbounded FIFO of warm-up requests. Enqueue never blocks and
// never fails visibly; a request that cannot be accepted is dropped. Requests
// are handed to exactly one consumer.
type Queue struct {
	mu     sync.Mutex
	items  []Request
	notify chan struct{}
	closed bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the queue. Invalid requests and requests arriving
// after Close are dropped silently; prefetching is best-effort and the caller
// has nothing useful to do with a failure.
func (q *Queue) Enqueue(req Request) {
	if req.UserID == "" || req.Folder == "" {
		log.Printf("Prefetch: Dropping request with missing user or folder")
		return
	}
	if req.PageCount <= 0 || req.PageSize <= 0 || req.StartPage <= 0 {
		log.Printf("Prefetch: Dropping request with invalid paging (start=%d count=%d size=%d)",
			req.StartPage, req.PageCount, req.PageSize)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.items = append(q.items, req)

	// Wake the worker if it is waiting. The channel has capacity 1, so a
	// pending wakeup makes this send a no-op.
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the oldest request, blocking until one is
// available. Returns false when the queue is closed and drained, or when ctx
// is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (Request, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			req := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return req, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return Request{}, false
		}

		select {
		case <-ctx.Done():
			return Request{}, false
		case <-q.notify:
		}
	}
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting new requests. Already queued requests remain
// dequeueable until drained. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.notify)
}
