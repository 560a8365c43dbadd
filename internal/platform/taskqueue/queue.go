package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull      = errors.New("task queue is full")
	ErrQueueClosed    = errors.New("task queue is closed")
	ErrAlreadyStarted = errors.New("task queue already started")
)

const (
	DefaultCapacity    = 100
	DefaultWorkers     = 4
	DefaultTaskTimeout = 30 * time.Second
)

// Task is a unit of deferred side work.
type Task struct {
	ID   string
	Name string
	Run  func(ctx context.Context) error
}

// Queue is a fixed-capacity FIFO served by a fixed worker pool.
// Enqueue never blocks; Stop drains what was accepted before returning.
type Queue struct {
	tasks       chan Task
	workers     int
	taskTimeout time.Duration
	logger      *slog.Logger
	metrics     queueMetrics

	mu      sync.RWMutex
	closed  bool
	started bool
	stop    chan struct{}
	done    chan struct{}
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithTaskTimeout bounds a single task run. Zero disables the bound.
func WithTaskTimeout(d time.Duration) Option {
	return func(q *Queue) { q.taskTimeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

func WithMeter(m metric.Meter) Option {
	return func(q *Queue) { q.metrics = newQueueMetrics(m) }
}

func New(capacity int, opts ...Option) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{
		tasks:       make(chan Task, capacity),
		workers:     DefaultWorkers,
		taskTimeout: DefaultTaskTimeout,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

// Enqueue accepts the task or rejects it immediately.
func (q *Queue) Enqueue(ctx context.Context, task Task) error {
	if task.Run == nil {
		return errors.New("task has no run function")
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.metrics.recordRejected(ctx, task.Name, "closed")
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		q.metrics.recordEnqueued(ctx, task.Name)
		return nil
	default:
		q.metrics.recordRejected(ctx, task.Name, "full")
		q.logger.LogAttrs(ctx, slog.LevelWarn, "task rejected, queue full",
			slog.String("task.name", task.Name),
			slog.Int("queue.capacity", cap(q.tasks)),
		)
		return fmt.Errorf("%w: capacity %d", ErrQueueFull, cap(q.tasks))
	}
}

// Start launches the workers. Cancelling ctx behaves like Stop without a deadline.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return ErrAlreadyStarted
	}
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.started = true
	q.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	for i := 0; i < q.workers; i++ {
		worker := i
		g.Go(func() error {
			q.work(runCtx, worker)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(q.done)
	}()
	go func() {
		select {
		case <-ctx.Done():
			q.shutdown()
		case <-q.stop:
		}
	}()
	q.logger.LogAttrs(ctx, slog.LevelInfo, "task queue started",
		slog.Int("workers", q.workers),
		slog.Int("capacity", cap(q.tasks)),
	)
	return nil
}

// Stop refuses new tasks, lets workers drain the backlog, and waits for them or ctx.
// A queue that was never started drains its backlog on the calling goroutine.
func (q *Queue) Stop(ctx context.Context) error {
	started := q.shutdown()
	if !started {
		return q.drain(ctx)
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports queued tasks not yet picked up.
func (q *Queue) Len() int { return len(q.tasks) }

func (q *Queue) Capacity() int { return cap(q.tasks) }

func (q *Queue) shutdown() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.stop)
	}
	return q.started
}

func (q *Queue) drain(ctx context.Context) error {
	runCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		select {
		case task := <-q.tasks:
			q.run(runCtx, -1, task)
		default:
			return nil
		}
	}
}

func (q *Queue) work(ctx context.Context, worker int) {
	for {
		select {
		case task := <-q.tasks:
			q.run(ctx, worker, task)
		case <-q.stop:
			for {
				select {
				case task := <-q.tasks:
					q.run(ctx, worker, task)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) run(ctx context.Context, worker int, task Task) {
	if q.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.taskTimeout)
		defer cancel()
	}
	start := time.Now()
	err := safeRun(ctx, task)
	attrs := []slog.Attr{
		slog.String("task.id", task.ID),
		slog.String("task.name", task.Name),
		slog.Int("worker", worker),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		q.metrics.recordFinished(ctx, task.Name, false)
		q.logger.LogAttrs(ctx, slog.LevelError, "task failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	q.metrics.recordFinished(ctx, task.Name, true)
	q.logger.LogAttrs(ctx, slog.LevelDebug, "task completed", attrs...)
}

func safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	return task.Run(ctx)
}

type queueMetrics struct {
	enqueued metric.Int64Counter
	rejected metric.Int64Counter
	finished metric.Int64Counter
}

func newQueueMetrics(m metric.Meter) queueMetrics {
	if m == nil {
		return queueMetrics{}
	}
	enqueued, _ := m.Int64Counter("taskqueue.enqueued", metric.WithDescription("Tasks accepted by the queue"))
	rejected, _ := m.Int64Counter("taskqueue.rejected", metric.WithDescription("Tasks rejected by the queue"))
	finished, _ := m.Int64Counter("taskqueue.finished", metric.WithDescription("Tasks executed by workers"))
	return queueMetrics{enqueued: enqueued, rejected: rejected, finished: finished}
}

func (m queueMetrics) recordEnqueued(ctx context.Context, name string) {
	if m.enqueued != nil {
		m.enqueued.Add(ctx, 1, metric.WithAttributes(attribute.String("task.name", name)))
	}
}

func (m queueMetrics) recordRejected(ctx context.Context, name, reason string) {
	if m.rejected != nil {
		m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("task.name", name), attribute.String("reason", reason)))
	}
}

func (m queueMetrics) recordFinished(ctx context.Context, name string, ok bool) {
	if m.finished != nil {
		m.finished.Add(ctx, 1, metric.WithAttributes(attribute.String("task.name", name), attribute.Bool("success", ok)))
	}
}
