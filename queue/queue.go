package queue

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vinayprograms/agentcore/logging"
	"github.com/vinayprograms/agentcore/tasks"
)

// Common errors.
var (
	// ErrInvalidTask indicates the task failed enqueue validation.
	ErrInvalidTask = errors.New("invalid task")

	// ErrTimeout indicates no task became available within the wait.
	ErrTimeout = errors.New("dequeue timed out")

	// ErrClosed indicates the queue has been closed and drained.
	ErrClosed = errors.New("queue closed")
)

// Config holds queue configuration.
type Config struct {
	// MinPriority and MaxPriority bound accepted task priorities,
	// inclusive. Defaults: 0 and 100.
	MinPriority int
	MaxPriority int

	// Logger receives queue observability events. Optional.
	Logger *logging.Logger
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinPriority: 0,
		MaxPriority: 100,
	}
}

// Queue is a thread-safe priority queue of pending tasks. Dequeue
// returns the highest-priority task, breaking ties by enqueue order.
// Blocked dequeuers suspend on a condition variable, never poll.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    itemHeap
	seq      uint64
	closed   bool

	minPriority int
	maxPriority int
	logger      *logging.Logger
}

// item pairs a task with its insertion sequence for FIFO tie-breaking.
type item struct {
	task *tasks.Task
	seq  uint64
}

// itemHeap orders by descending priority, then ascending sequence.
type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) {
	*h = append(*h, x.(*item))
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// New creates a queue with the given configuration.
func New(cfg Config) *Queue {
	if cfg.MaxPriority == 0 && cfg.MinPriority == 0 {
		cfg.MaxPriority = DefaultConfig().MaxPriority
	}
	q := &Queue{
		minPriority: cfg.MinPriority,
		maxPriority: cfg.MaxPriority,
		logger:      cfg.Logger,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue inserts a task. Returns ErrInvalidTask if the kind is empty
// or the priority is outside the configured bounds, ErrClosed if the
// queue has been closed. Wakes one blocked dequeuer.
func (q *Queue) Enqueue(t *tasks.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if t.Priority < q.minPriority || t.Priority > q.maxPriority {
		return fmt.Errorf("%w: priority %d outside [%d, %d]",
			ErrInvalidTask, t.Priority, q.minPriority, q.maxPriority)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.seq++
	heap.Push(&q.items, &item{task: t, seq: q.seq})
	q.mu.Unlock()

	if q.logger != nil {
		q.logger.TaskEnqueued(t.ID, t.Kind, t.Priority)
	}
	q.notEmpty.Signal()
	return nil
}

// Dequeue removes and returns the highest-priority task, blocking up
// to timeout while the queue is empty. A non-positive timeout waits
// until a task arrives or the queue closes. Returns ErrTimeout when
// the wait elapses and ErrClosed once the queue is closed and empty;
// items enqueued before Close are still delivered.
func (q *Queue) Dequeue(timeout time.Duration) (*tasks.Task, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
		// Cond has no timed wait; a timer broadcast wakes waiters so
		// the loop can observe the deadline.
		timer := time.AfterFunc(timeout, func() {
			q.mu.Lock()
			q.mu.Unlock()
			q.notEmpty.Broadcast()
		})
		defer timer.Stop()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 {
		if q.closed {
			return nil, ErrClosed
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil, ErrTimeout
		}
		q.notEmpty.Wait()
	}

	it := heap.Pop(&q.items).(*item)
	// Ownership transfers to the caller; the queue holds no reference
	// past this point.
	return it.task, nil
}

// Close marks the queue closed. Already-enqueued tasks are still
// delivered to dequeuers (drain-then-close); once empty, blocked and
// future Dequeue calls return ErrClosed. Enqueue after Close returns
// ErrClosed. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.notEmpty.Broadcast()
}

// Drain removes and returns every remaining task without blocking.
// Used at forced teardown so the caller can mark undelivered work
// failed instead of dropping it silently.
func (q *Queue) Drain() []*tasks.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := make([]*tasks.Task, 0, q.items.Len())
	for q.items.Len() > 0 {
		it := heap.Pop(&q.items).(*item)
		drained = append(drained, it.task)
	}
	return drained
}

// Size returns a non-blocking snapshot of the queue depth.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
