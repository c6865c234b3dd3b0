package archive

import (
	"context"
	"errors"
	"time"

	"github.com/vinayprograms/agentcore/tasks"
)

// defaultSearchLimit caps Search results when the caller passes no limit.
const defaultSearchLimit = 10

// Common errors.
var (
	// ErrNotFound indicates no entry exists for the task ID.
	ErrNotFound = errors.New("entry not found")

	// ErrNotTerminal indicates the task has not finished yet.
	ErrNotTerminal = errors.New("task is not terminal")

	// ErrClosed indicates the archive has been closed.
	ErrClosed = errors.New("archive closed")
)

// Entry is the record handed off when a task reaches a terminal
// state: identity, outcome, and timing. Entries are immutable.
type Entry struct {
	// TaskID identifies the archived task.
	TaskID string `json:"task_id"`

	// Kind is the task's strategy kind.
	Kind string `json:"kind"`

	// Priority the task ran with.
	Priority int `json:"priority"`

	// Status is succeeded or failed.
	Status string `json:"status"`

	// Result holds the task's output, nil for failed tasks.
	Result map[string]any `json:"result,omitempty"`

	// Error holds the fault message, empty for succeeded tasks.
	Error string `json:"error,omitempty"`

	// FaultCode is the machine-readable failure code, if failed.
	FaultCode string `json:"fault_code,omitempty"`

	// CreatedAt is when the task was constructed.
	CreatedAt time.Time `json:"created_at"`

	// EndedAt is when the task reached its terminal state.
	EndedAt time.Time `json:"ended_at"`
}

// Archive retains terminal task records for later inspection. The
// core treats it as optional: a Put failure is logged by the caller
// and never affects the task's outcome.
type Archive interface {
	// Put records a terminal task. Returns ErrNotTerminal if the task
	// has not finished.
	Put(ctx context.Context, t *tasks.Task) error

	// Get retrieves an entry by task ID.
	// Returns ErrNotFound if no entry exists.
	Get(ctx context.Context, taskID string) (*Entry, error)

	// Search returns entries matching a full-text query over error
	// messages, result content, and kinds. Limit bounds the result
	// count; limit <= 0 uses a default of 10.
	Search(ctx context.Context, query string, limit int) ([]*Entry, error)

	// Close releases resources held by the archive.
	Close() error
}

// entryFromTask builds an Entry from a terminal task.
func entryFromTask(t *tasks.Task) (*Entry, error) {
	status := t.Status()
	if !status.IsTerminal() {
		return nil, ErrNotTerminal
	}

	e := &Entry{
		TaskID:    t.ID,
		Kind:      t.Kind,
		Priority:  t.Priority,
		Status:    status.String(),
		Result:    t.Result(),
		CreatedAt: t.CreatedAt,
		EndedAt:   t.EndedAt(),
	}
	if fault := t.Err(); fault != nil {
		e.Error = fault.Error()
		e.FaultCode = fault.Code().String()
	}
	return e, nil
}
