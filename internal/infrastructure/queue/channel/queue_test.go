package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

func TestEachMessageDeliveredExactlyOnce(t *testing.T) {
	q, err := New(16, 2)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	seen := map[string]int{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.SubscribeDocumentSubmitted(ctx, func(_ context.Context, id string) error {
			mu.Lock()
			seen[id]++
			mu.Unlock()
			return nil
		})
	}()

	ids := []string{"d1", "d2", "d3", "d4", "d5"}
	for _, id := range ids {
		if err := q.PublishDocumentSubmitted(context.Background(), id); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		total := 0
		for _, n := range seen {
			total += n
		}
		mu.Unlock()
		if total == len(ids) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for deliveries, seen=%v", seen)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	for _, id := range ids {
		if seen[id] != 1 {
			t.Fatalf("id %s delivered %d times", id, seen[id])
		}
	}
}

func TestPublishFullBufferIsTemporary(t *testing.T) {
	q, err := New(1, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer q.Close()

	// No subscriber is draining, so the second publish finds the buffer full.
	if err := q.PublishDocumentSubmitted(context.Background(), "d1"); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	err = q.PublishDocumentSubmitted(context.Background(), "d2")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestPublishAfterCloseIsRefused(t *testing.T) {
	q, err := New(4, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	q.Close()

	err = q.PublishDocumentSubmitted(context.Background(), "d1")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary after close, got %v", err)
	}
}

func TestSubscribeDrainsInFlightOnCancel(t *testing.T) {
	q, err := New(4, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	finished := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.SubscribeDocumentSubmitted(ctx, func(context.Context, string) error {
			close(started)
			time.Sleep(50 * time.Millisecond)
			close(finished)
			return nil
		})
	}()

	if err := q.PublishDocumentSubmitted(context.Background(), "d1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	<-started
	cancel()
	<-done

	select {
	case <-finished:
	default:
		t.Fatalf("subscribe returned before the in-flight handler finished")
	}
}

func TestInFlightHandlerContextSurvivesCancel(t *testing.T) {
	q, err := New(4, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	var mu sync.Mutex
	var handlerErr error
	go func() {
		defer close(done)
		_ = q.SubscribeDocumentSubmitted(ctx, func(hctx context.Context, _ string) error {
			close(started)
			<-release
			mu.Lock()
			handlerErr = hctx.Err()
			mu.Unlock()
			return nil
		})
	}()

	if err := q.PublishDocumentSubmitted(context.Background(), "d1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	<-started
	cancel()
	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	if handlerErr != nil {
		t.Fatalf("drained handler saw a dead context: %v", handlerErr)
	}
}
