package eventbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vinayprograms/agentcore/logging"
)

// Common errors.
var (
	// ErrInvalidType indicates an empty event type.
	ErrInvalidType = errors.New("invalid event type")

	// ErrNilHandler indicates Subscribe was called with a nil handler.
	ErrNilHandler = errors.New("nil handler")
)

// Type identifies a class of events.
type Type string

// Well-known event types published by the core.
const (
	// TaskEnqueued fires when a task is accepted by a queue.
	TaskEnqueued Type = "task.enqueued"

	// TaskStarted fires when a worker begins executing a task.
	TaskStarted Type = "task.started"

	// TaskSucceeded fires when a task reaches the succeeded state.
	TaskSucceeded Type = "task.succeeded"

	// TaskFailed fires when a task reaches the failed state.
	TaskFailed Type = "task.failed"

	// AgentState fires on agent lifecycle transitions.
	AgentState Type = "agent.state"
)

// Event is a notification delivered to subscribers. Data is typically
// a *tasks.Task clone for task events, or a StateChange for AgentState.
type Event struct {
	// Type classifies the event.
	Type Type

	// Time is when the event was published.
	Time time.Time

	// AgentID identifies the publishing agent, when applicable.
	AgentID string

	// Data carries the event payload.
	Data any
}

// StateChange is the Data payload of an AgentState event.
type StateChange struct {
	From string
	To   string
}

// Handler processes one event. A non-nil return (or a panic) is
// captured into the publish report; it never propagates to the
// publisher or suppresses later handlers.
type Handler func(Event) error

// HandlerResult records one handler invocation within a publish.
type HandlerResult struct {
	// Index is the handler's registration position for the type.
	Index int

	// Duration is how long the handler ran.
	Duration time.Duration

	// Err is the handler's error, or the recovered panic.
	Err error
}

// Report is the outcome of a single Publish call.
type Report struct {
	// Type is the published event type.
	Type Type

	// Delivered is the number of handlers invoked.
	Delivered int

	// Results holds one entry per handler, in invocation order.
	Results []HandlerResult
}

// Failed returns the number of handlers that returned an error.
func (r *Report) Failed() int {
	n := 0
	for _, hr := range r.Results {
		if hr.Err != nil {
			n++
		}
	}
	return n
}

// Bus is a synchronous in-process publish/subscribe mechanism. It is
// shared infrastructure: one bus outlives any single agent and may
// serve several. Subscriptions last for the life of the process; there
// is no replay for late subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	logger   *logging.Logger
}

// New creates a bus. The logger receives handler-failure events and
// may be nil.
func New(logger *logging.Logger) *Bus {
	return &Bus{
		handlers: make(map[Type][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type. Handlers for a
// type are invoked in registration order.
func (b *Bus) Subscribe(t Type, h Handler) error {
	if t == "" {
		return ErrInvalidType
	}
	if h == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
	return nil
}

// Publish delivers the event to all current subscribers of its type,
// synchronously, in the calling goroutine. Each handler is isolated:
// an error or panic is captured into the report and logged, and the
// remaining handlers still run. Handler invocation within one Publish
// is strictly sequential; Publish calls from different goroutines may
// interleave freely.
func (b *Bus) Publish(event Event) *Report {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	report := &Report{
		Type:      event.Type,
		Delivered: len(handlers),
		Results:   make([]HandlerResult, 0, len(handlers)),
	}

	for i, h := range handlers {
		start := time.Now()
		err := b.invoke(h, event)
		report.Results = append(report.Results, HandlerResult{
			Index:    i,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil && b.logger != nil {
			b.logger.HandlerFailed(string(event.Type), i, err)
		}
	}

	return report
}

// invoke runs one handler, converting a panic into an error.
func (b *Bus) invoke(h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(event)
}

// SubscriberCount returns the number of handlers for a type.
func (b *Bus) SubscriberCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[t])
}
