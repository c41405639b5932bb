// Package channel is the in-process job queue used when the API and worker
// run in one binary. Semantics mirror the NATS adapter: publish is fire and
// forget, each message is handled once, and shutdown drains in-flight work.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

type Queue struct {
	messages chan string
	pool     *ants.Pool
	wg       sync.WaitGroup

	closeOnce sync.Once
	closed    chan struct{}
}

// New sizes the message buffer and the concurrent handler pool. A full
// buffer rejects publishes instead of blocking the submit path.
func New(bufferSize, workers int) (*Queue, error) {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Queue{
		messages: make(chan string, bufferSize),
		pool:     pool,
		closed:   make(chan struct{}),
	}, nil
}

func (q *Queue) PublishDocumentSubmitted(_ context.Context, documentID string) error {
	select {
	case <-q.closed:
		return domain.WrapError(domain.ErrTemporary, "channel publish",
			errors.New("queue is shut down"))
	default:
	}

	select {
	case q.messages <- documentID:
		return nil
	default:
		return domain.WrapError(domain.ErrTemporary, "channel publish",
			errors.New("ingestion queue is full"))
	}
}

// SubscribeDocumentSubmitted consumes until ctx is cancelled, then waits for
// handlers already dispatched to the pool to finish.
func (q *Queue) SubscribeDocumentSubmitted(ctx context.Context, handler func(context.Context, string) error) error {
	for {
		select {
		case <-ctx.Done():
			q.wg.Wait()
			return nil
		case documentID := <-q.messages:
			q.wg.Add(1)
			// Handlers get a context detached from the subscribe one, so a
			// drained in-flight job can finish after shutdown begins instead
			// of aborting its provider calls mid-document.
			handlerCtx := context.WithoutCancel(ctx)
			err := q.pool.Submit(func() {
				defer q.wg.Done()
				if err := handler(handlerCtx, documentID); err != nil {
					slog.Error("ingestion handler failed",
						"document_id", documentID, "error", err)
				}
			})
			if err != nil {
				q.wg.Done()
				slog.Error("worker pool rejected job",
					"document_id", documentID, "error", err)
			}
		}
	}
}

func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
		q.wg.Wait()
		q.pool.Release()
	})
}
