package prefetch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mfarkas/mailward/internal/models"
)

// recordingWarmer records WarmFolderPage calls and fails the pages listed in
// failPages.
type recordingWarmer struct {
	mu        sync.Mutex
	calls     []warmCall
	failPages map[int]bool
}

type warmCall struct {
	userID   string
	folder   models.Folder
	page     int
	pageSize int
}

func (w *recordingWarmer) WarmFolderPage(_ context.Context, userID string, folder models.Folder, page, pageSize int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.calls = append(w.calls, warmCall{userID, folder, page, pageSize})
	if w.failPages[page] {
		return fmt.Errorf("simulated fetch failure for page %d", page)
	}
	return nil
}

func (w *recordingWarmer) callsSnapshot() []warmCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]warmCall(nil), w.calls...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) FolderWarmed(userID, folder string, page int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, fmt.Sprintf("%s/%s/%d", userID, folder, page))
}

func (n *recordingNotifier) eventsSnapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// runWorker processes everything currently queued and returns once the worker
// has stopped.
func runWorker(t *testing.T, q *Queue, warmer PageWarmer, notifier Notifier) {
	t.Helper()

	q.Close()

	done := make(chan struct{})
	go func() {
		NewWorker(q, warmer, notifier).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Worker did not drain the queue")
	}
}

func TestWorkerWarmsPagesInOrder(t *testing.T) {
	q := NewQueue()
	warmer := &recordingWarmer{}

	q.Enqueue(Request{UserID: "u1", Folder: "inbox", StartPage: 3, PageCount: 3, PageSize: 25})
	runWorker(t, q, warmer, nil)

	calls := warmer.callsSnapshot()
	if len(calls) != 3 {
		t.Fatalf("Expected 3 warm calls, got %d", len(calls))
	}
	for i, wantPage := range []int{3, 4, 5} {
		call := calls[i]
		if call.userID != "u1" || call.folder != models.FolderInbox || call.page != wantPage || call.pageSize != 25 {
			t.Errorf("Call %d: expected (u1, inbox, %d, 25), got (%s, %s, %d, %d)",
				i, wantPage, call.userID, call.folder, call.page, call.pageSize)
		}
	}
}

func TestWorkerFolderNames(t *testing.T) {
	t.Run("folder matching is case-insensitive", func(t *testing.T) {
		q := NewQueue()
		warmer := &recordingWarmer{}

		q.Enqueue(Request{UserID: "u1", Folder: "INBOX", StartPage: 1, PageCount: 1, PageSize: 25})
		q.Enqueue(Request{UserID: "u1", Folder: "Sent", StartPage: 1, PageCount: 1, PageSize: 25})
		runWorker(t, q, warmer, nil)

		calls := warmer.callsSnapshot()
		if len(calls) != 2 {
			t.Fatalf("Expected 2 warm calls, got %d", len(calls))
		}
		if calls[0].folder != models.FolderInbox || calls[1].folder != models.FolderSent {
			t.Errorf("Expected folders (inbox, sent), got (%s, %s)", calls[0].folder, calls[1].folder)
		}
	})

	t.Run("unknown folder triggers no fetches", func(t *testing.T) {
		q := NewQueue()
		warmer := &recordingWarmer{}

		q.Enqueue(Request{UserID: "u1", Folder: "spam-folder", StartPage: 1, PageCount: 3, PageSize: 25})
		runWorker(t, q, warmer, nil)

		if len(warmer.callsSnapshot()) != 0 {
			t.Errorf("Expected no warm calls for unknown folder, got %d", len(warmer.callsSnapshot()))
		}
	})
}

func TestWorkerContinuesPastFailedPage(t *testing.T) {
	q := NewQueue()
	warmer := &recordingWarmer{failPages: map[int]bool{2: true}}
	notifier := &recordingNotifier{}

	q.Enqueue(Request{UserID: "u1", Folder: "inbox", StartPage: 1, PageCount: 3, PageSize: 25})
	runWorker(t, q, warmer, notifier)

	calls := warmer.callsSnapshot()
	if len(calls) != 3 {
		t.Fatalf("Expected all 3 pages attempted despite failure, got %d", len(calls))
	}

	// Only the successful pages produce notifications.
	events := notifier.eventsSnapshot()
	want := []string{"u1/inbox/1", "u1/inbox/3"}
	if len(events) != len(want) {
		t.Fatalf("Expected %d events, got %d: %v", len(want), len(events), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("Event %d: expected %q, got %q", i, want[i], events[i])
		}
	}
}

func TestWorkerProcessesEachRequestOnce(t *testing.T) {
	q := NewQueue()
	warmer := &recordingWarmer{}

	for i := 1; i <= 20; i++ {
		q.Enqueue(Request{UserID: "u1", Folder: "inbox", StartPage: i, PageCount: 1, PageSize: 25})
	}
	runWorker(t, q, warmer, nil)

	calls := warmer.callsSnapshot()
	if len(calls) != 20 {
		t.Fatalf("Expected 20 warm calls, got %d", len(calls))
	}
	seen := make(map[int]int)
	for _, call := range calls {
		seen[call.page]++
	}
	for page, count := range seen {
		if count != 1 {
			t.Errorf("Page %d warmed %d times, expected exactly once", page, count)
		}
	}
}

func TestWorkerStopsOnContextCancellation(t *testing.T) {
	q := NewQueue()
	warmer := &recordingWarmer{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewWorker(q, warmer, nil).Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Worker did not stop after context cancellation")
	}
}
