// Package worker applies queued host notifications to the footprint engine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/footsteps/internal/adapters/mq/queue"
	"github.com/okian/footsteps/internal/domain/model"
	"github.com/okian/footsteps/pkg/logger"
	"github.com/okian/footsteps/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 1 // notifications of one scene are applied in arrival order
	poolShutdownTimeout = 30 * time.Second
)

// ErrUnknownKind is returned for notifications with an unrecognised kind.
var ErrUnknownKind = errors.New("unknown notification kind")

// Notification abstracts what workers read off the queue.
type Notification = queue.Notification

// Handler reacts to host notifications.
type Handler interface {
	HandleMove(ctx context.Context, move model.MoveNotification) error
	HandleTurnChange(ctx context.Context, turn model.TurnNotification) error
	HandleEncounterEnd(ctx context.Context, end model.EncounterEndNotification) error
}

// Queue defines how workers receive notifications.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Notification
}

// Worker processes notifications using the provided handler.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the notification in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing notifications.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string

	processed atomic.Int64
	failed    atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		handler:  handler,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop. It returns when ctx is done, Shutdown is
// called or the queue channel is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			if err := w.process(ctx, n); err != nil {
				w.failed.Add(1)
				w.logger.Error(ctx, "error processing notification",
					logger.String("notification_id", n.ID),
					logger.String("kind", string(n.Kind)),
					logger.Error(err),
				)
				continue
			}
			w.processed.Add(1)
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// process dispatches a single notification on its kind.
func (w *InMemoryWorker) process(ctx context.Context, n Notification) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var err error
	switch n.Kind {
	case model.KindMove:
		err = w.handler.HandleMove(ctx, n.Move)
	case model.KindTurnChange:
		err = w.handler.HandleTurnChange(ctx, n.Turn)
	case model.KindEncounterEnd:
		err = w.handler.HandleEncounterEnd(ctx, n.End)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}

	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", string(n.Kind)+"_error")
		metrics.RecordErrorByType("handler_error", "medium")
		return fmt.Errorf("notification %s: %w", n.ID, err)
	}
	return nil
}

// Pool manages multiple workers reading the same queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool. A count below one means a single worker.
func NewPool(workerCount int, queue Queue, handler Handler) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, handler, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerActiveCount(workerCount)

	return pool
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Processed returns how many notifications were applied and how many failed.
func (p *Pool) Processed() (ok, failed int64) {
	for _, w := range p.workers {
		ok += w.processed.Load()
		failed += w.failed.Load()
	}
	return ok, failed
}

// Stop signals every worker to stop without draining the queue.
func (p *Pool) Stop(ctx context.Context) {
	for i, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker stop timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
}

// Shutdown closes the queue, lets the workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)

	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
