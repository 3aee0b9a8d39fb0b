package prefetch

import (
	"context"
	"sync"
	"testing"
	"time"
)

func validRequest(folder string, page int) Request {
	return Request{
		UserID:    "u1",
		Folder:    folder,
		StartPage: page,
		PageCount: 1,
		PageSize:  25,
	}
}

func TestQueueEnqueueDequeue(t *testing.T) {
	ctx := context.Background()

	t.Run("FIFO order", func(t *testing.T) {
		q := NewQueue()
		q.Enqueue(validRequest("inbox", 1))
		q.Enqueue(validRequest("inbox", 2))
		q.Enqueue(validRequest("sent", 1))

		for _, want := range []struct {
			folder string
			page   int
		}{{"inbox", 1}, {"inbox", 2}, {"sent", 1}} {
			req, ok := q.Dequeue(ctx)
			if !ok {
				t.Fatal("Expected a request")
			}
			if req.Folder != want.folder || req.StartPage != want.page {
				t.Errorf("Expected (%s, %d), got (%s, %d)", want.folder, want.page, req.Folder, req.StartPage)
			}
		}
	})

	t.Run("dequeue blocks until enqueue", func(t *testing.T) {
		q := NewQueue()
		done := make(chan Request, 1)

		go func() {
			req, ok := q.Dequeue(ctx)
			if ok {
				done <- req
			}
		}()

		// Give the consumer a moment to block, then feed it.
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(validRequest("inbox", 1))

		select {
		case req := <-done:
			if req.Folder != "inbox" {
				t.Errorf("Expected folder 'inbox', got %q", req.Folder)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Dequeue did not wake up after Enqueue")
		}
	})

	t.Run("invalid requests are dropped", func(t *testing.T) {
		q := NewQueue()
		q.Enqueue(Request{Folder: "inbox", StartPage: 1, PageCount: 1, PageSize: 25})
		q.Enqueue(Request{UserID: "u1", StartPage: 1, PageCount: 1, PageSize: 25})
		q.Enqueue(Request{UserID: "u1", Folder: "inbox", StartPage: 0, PageCount: 1, PageSize: 25})
		q.Enqueue(Request{UserID: "u1", Folder: "inbox", StartPage: 1, PageCount: 0, PageSize: 25})
		q.Enqueue(Request{UserID: "u1", Folder: "inbox", StartPage: 1, PageCount: 1, PageSize: 0})

		if q.Len() != 0 {
			t.Errorf("Expected empty queue, got %d items", q.Len())
		}
	})
}

func TestQueueEnqueueNeverBlocks(t *testing.T) {
	q := NewQueue()

	done := make(chan struct{})
	go func() {
		// Far more items than the wakeup channel could buffer, with no
		// consumer running.
		for i := 1; i <= 10000; i++ {
			q.Enqueue(validRequest("inbox", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Enqueue blocked without a consumer")
	}

	if q.Len() != 10000 {
		t.Errorf("Expected 10000 queued items, got %d", q.Len())
	}
}

func TestQueueClose(t *testing.T) {
	t.Run("drains remaining items then reports closed", func(t *testing.T) {
		q := NewQueue()
		q.Enqueue(validRequest("inbox", 1))
		q.Close()

		req, ok := q.Dequeue(context.Background())
		if !ok || req.StartPage != 1 {
			t.Fatalf("Expected queued item after close, got ok=%v", ok)
		}

		if _, ok := q.Dequeue(context.Background()); ok {
			t.Error("Expected Dequeue to report closed on empty queue")
		}
	})

	t.Run("enqueue after close is dropped", func(t *testing.T) {
		q := NewQueue()
		q.Close()
		q.Enqueue(validRequest("inbox", 1))

		if q.Len() != 0 {
			t.Errorf("Expected dropped request, got %d items", q.Len())
		}
	})

	t.Run("close is idempotent", func(t *testing.T) {
		q := NewQueue()
		q.Close()
		q.Close()
	})

	t.Run("unblocks a waiting consumer", func(t *testing.T) {
		q := NewQueue()
		done := make(chan struct{})

		go func() {
			_, ok := q.Dequeue(context.Background())
			if ok {
				t.Error("Expected closed signal, got a request")
			}
			close(done)
		}()

		time.Sleep(10 * time.Millisecond)
		q.Close()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Dequeue did not return after Close")
		}
	})
}

func TestQueueContextCancellation(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("Expected Dequeue to report cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Dequeue did not return after context cancellation")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue()
	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 1; i <= perProducer; i++ {
				q.Enqueue(validRequest("inbox", i))
			}
		}()
	}
	wg.Wait()

	if q.Len() != producers*perProducer {
		t.Errorf("Expected %d items, got %d", producers*perProducer, q.Len())
	}
}
