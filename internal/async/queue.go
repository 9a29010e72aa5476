package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
)

var (
	// ErrQueueClosed is returned by Enqueue after Shutdown has begun, so
	// callers never acknowledge a job that will not run.
	ErrQueueClosed = errors.New("extraction queue is shut down")
	// ErrQueueFull is returned instead of blocking when the buffer is at
	// capacity; callers translate it into backpressure on their own clients.
	ErrQueueFull = errors.New("extraction queue is full")
)

// Job is one queued receipt image awaiting extraction. Multi-file imports
// enqueue one job per file; a failed job never blocks its siblings.
type Job struct {
	UploadID    uuid.UUID
	Image       []byte
	MimeType    string
	SellerID    string
	SubmittedAt time.Time
}

// Handler processes one job; the queue isolates its failures per item.
type Handler func(ctx context.Context, job Job) error

// ExtractionQueue runs extraction jobs on a bounded worker pool.
type ExtractionQueue struct {
	handler Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ExtractionQueue)

func WithWorkers(n int) Option {
	return func(q *ExtractionQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ExtractionQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(q *ExtractionQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewExtractionQueue(handler Handler, logger *slog.Logger, opts ...Option) *ExtractionQueue {
	q := &ExtractionQueue{
		handler: handler,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ExtractionQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					err := q.handler(ctx, job)
					cancel()

					if err != nil {
						q.logger.Error("extraction failed", "worker_id", workerID, "upload_id", job.UploadID, "error", err)
					} else {
						q.logger.Info("extraction finished", "worker_id", workerID, "upload_id", job.UploadID)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ExtractionQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("rejecting upload: queue is shut down", "upload_id", job.UploadID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued upload for extraction", "upload_id", job.UploadID, "bytes", len(job.Image))
		return nil
	default:
		q.logger.Warn("rejecting upload: queue is full", "upload_id", job.UploadID)
		return ErrQueueFull
	}
}

func (q *ExtractionQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("queue drained")
	case <-ctx.Done():
		q.logger.Warn("queue shutdown timed out", "error", ctx.Err())
	}
}
