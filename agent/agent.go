package agent

import (
	"errors"
	"time"

	"github.com/vinayprograms/agentcore/lifecycle"
	"github.com/vinayprograms/agentcore/tasks"
)

// Common errors.
var (
	// ErrUnknownAgentType indicates the factory has no constructor for
	// the requested type.
	ErrUnknownAgentType = errors.New("unknown agent type")

	// ErrDuplicateAgentType indicates a constructor is already
	// registered for the type.
	ErrDuplicateAgentType = errors.New("agent type already registered")

	// ErrNotSupported indicates the agent does not implement the
	// operation; monitor agents accept no tasks.
	ErrNotSupported = errors.New("operation not supported")

	// ErrBusRequired indicates an agent kind that cannot work without
	// a shared event bus was constructed without one.
	ErrBusRequired = errors.New("event bus required")
)

// Agent is the control surface shared by all agent kinds. An agent
// owns a lifecycle and reacts to the task stream; what it does with
// tasks depends on the implementation.
type Agent interface {
	// ID returns the agent's unique identifier.
	ID() string

	// Start moves the agent from idle to running.
	Start() error

	// Submit hands the agent a task. Accepted in any state before
	// stopped; a paused agent queues the task without executing it.
	Submit(t *tasks.Task) error

	// Pause suspends task execution. In-flight tasks finish.
	Pause() error

	// Resume continues execution after a pause.
	Resume() error

	// Stop shuts the agent down, waiting up to grace for in-flight
	// tasks. Work that cannot finish is failed with a forced-shutdown
	// fault, never dropped silently. Stopped is terminal.
	Stop(grace time.Duration) error

	// State returns the current lifecycle state.
	State() lifecycle.State
}
