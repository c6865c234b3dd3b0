// Package lifecycle implements the state machine governing an agent:
//
//	idle → running ⇄ paused → stopped
//
// Stopped is terminal. A stopped machine cannot be reused; build a
// fresh instance for a new agent.
package lifecycle

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition indicates the requested verb is not permitted
// from the current state.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// State is an agent lifecycle state.
type State string

const (
	// StateIdle is the initial state; the agent holds work but runs nothing.
	StateIdle State = "idle"

	// StateRunning means the worker pool is dequeuing and executing.
	StateRunning State = "running"

	// StatePaused means dequeuing is suspended; in-flight tasks finish.
	StatePaused State = "paused"

	// StateStopped is terminal.
	StateStopped State = "stopped"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Machine is a thread-safe lifecycle state machine. The optional
// notify callback observes every successful transition; it runs
// outside the machine's lock.
type Machine struct {
	mu     sync.Mutex
	state  State
	notify func(from, to State)
}

// New creates a machine in the idle state.
func New(notify func(from, to State)) *Machine {
	return &Machine{
		state:  StateIdle,
		notify: notify,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start transitions idle → running.
func (m *Machine) Start() error {
	return m.transition(StateRunning, StateIdle)
}

// Pause transitions running → paused. In-flight tasks are not
// interrupted; only new dequeues stop.
func (m *Machine) Pause() error {
	return m.transition(StatePaused, StateRunning)
}

// Resume transitions paused → running.
func (m *Machine) Resume() error {
	return m.transition(StateRunning, StatePaused)
}

// Stop transitions running or paused → stopped. Stopped is terminal.
func (m *Machine) Stop() error {
	return m.transition(StateStopped, StateRunning, StatePaused)
}

// transition moves to the target state if the current state is one of
// the allowed sources.
func (m *Machine) transition(to State, from ...State) error {
	m.mu.Lock()
	current := m.state
	allowed := false
	for _, f := range from {
		if current == f {
			allowed = true
			break
		}
	}
	if !allowed {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, to)
	}
	m.state = to
	notify := m.notify
	m.mu.Unlock()

	if notify != nil {
		notify(current, to)
	}
	return nil
}
