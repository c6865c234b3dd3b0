package tasks

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/agentcore/faults"
)

// Common errors.
var (
	// ErrEmptyKind indicates a task was created without a kind.
	ErrEmptyKind = errors.New("task kind is empty")

	// ErrNotPending indicates Start was called on a non-pending task.
	ErrNotPending = errors.New("task is not pending")

	// ErrNotRunning indicates a terminal transition was attempted before Start.
	ErrNotRunning = errors.New("task is not running")

	// ErrTerminal indicates the task already reached a terminal state.
	ErrTerminal = errors.New("task already terminal")
)

// Status represents the current state of a task.
// Transitions are monotonic: pending -> running -> succeeded | failed.
type Status string

const (
	// StatusPending indicates the task is waiting in a queue.
	StatusPending Status = "pending"

	// StatusRunning indicates a worker is executing the task.
	StatusRunning Status = "running"

	// StatusSucceeded indicates the task completed with a result.
	StatusSucceeded Status = "succeeded"

	// StatusFailed indicates the task completed with a fault.
	StatusFailed Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Task is one unit of work. Identity fields (ID, Kind, Priority,
// Payload, CreatedAt) are fixed at construction; only the status and
// its outcome change, through the guarded transition methods. A task
// is owned by exactly one queue slot until a worker dequeues it, then
// by that worker until it reaches a terminal state. After that the
// record is read-only and caller-owned.
type Task struct {
	// ID uniquely identifies the task. Assigned at creation.
	ID string

	// Kind selects the processing strategy.
	Kind string

	// Priority orders dequeue; higher values are dequeued first.
	// Ties are broken by enqueue order.
	Priority int

	// Payload holds the parameters consumed by the strategy.
	// Treated as immutable after creation.
	Payload map[string]any

	// CreatedAt is when the task was constructed.
	CreatedAt time.Time

	mu        sync.Mutex
	status    Status
	result    map[string]any
	fault     *faults.Fault
	startedAt time.Time
	endedAt   time.Time
}

// New creates a pending task with a generated ID.
func New(kind string, priority int, payload map[string]any) *Task {
	return &Task{
		ID:        uuid.New().String(),
		Kind:      kind,
		Priority:  priority,
		Payload:   payload,
		CreatedAt: time.Now(),
		status:    StatusPending,
	}
}

// Status returns the current status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Result returns the result map, or nil before success.
func (t *Task) Result() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Err returns the recorded fault, or nil before failure.
func (t *Task) Err() *faults.Fault {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fault
}

// StartedAt returns when the task began running (zero if never started).
func (t *Task) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt
}

// EndedAt returns when the task reached a terminal state (zero until then).
func (t *Task) EndedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.endedAt
}

// Duration returns the wall time from start to terminal state.
func (t *Task) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startedAt.IsZero() || t.endedAt.IsZero() {
		return 0
	}
	return t.endedAt.Sub(t.startedAt)
}

// Start transitions the task from pending to running.
// Returns ErrNotPending from any other state.
func (t *Task) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusPending {
		return ErrNotPending
	}
	t.status = StatusRunning
	t.startedAt = time.Now()
	return nil
}

// Succeed transitions the task from running to succeeded and records
// the result. The result is set exactly once; ErrTerminal is returned
// if the task was already finished (for example by a forced shutdown).
func (t *Task) Succeed(result map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.IsTerminal() {
		return ErrTerminal
	}
	if t.status != StatusRunning {
		return ErrNotRunning
	}
	t.status = StatusSucceeded
	t.result = result
	t.endedAt = time.Now()
	return nil
}

// Fail transitions the task from running to failed and records the
// fault. Mutually exclusive with Succeed.
func (t *Task) Fail(fault *faults.Fault) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.IsTerminal() {
		return ErrTerminal
	}
	if t.status != StatusRunning {
		return ErrNotRunning
	}
	t.status = StatusFailed
	t.fault = fault
	t.endedAt = time.Now()
	return nil
}

// FailPending marks a task failed directly from pending. Used only
// when a queue is being torn down and undelivered work must leave an
// audit trail instead of vanishing.
func (t *Task) FailPending(fault *faults.Fault) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusPending {
		return ErrNotPending
	}
	t.status = StatusFailed
	t.fault = fault
	t.endedAt = time.Now()
	return nil
}

// Validate checks construction invariants.
func (t *Task) Validate() error {
	if t.Kind == "" {
		return ErrEmptyKind
	}
	return nil
}

// Clone returns a deep copy of the task's current state. Observers
// receive clones so the executing worker retains sole ownership of
// the live record.
func (t *Task) Clone() *Task {
	t.mu.Lock()
	defer t.mu.Unlock()

	clone := &Task{
		ID:        t.ID,
		Kind:      t.Kind,
		Priority:  t.Priority,
		CreatedAt: t.CreatedAt,
		status:    t.status,
		fault:     t.fault,
		startedAt: t.startedAt,
		endedAt:   t.endedAt,
	}
	if t.Payload != nil {
		clone.Payload = make(map[string]any, len(t.Payload))
		for k, v := range t.Payload {
			clone.Payload[k] = v
		}
	}
	if t.result != nil {
		clone.result = make(map[string]any, len(t.result))
		for k, v := range t.result {
			clone.result[k] = v
		}
	}
	return clone
}
