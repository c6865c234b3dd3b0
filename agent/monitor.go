package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/agentcore/eventbus"
	"github.com/vinayprograms/agentcore/lifecycle"
	"github.com/vinayprograms/agentcore/logging"
	"github.com/vinayprograms/agentcore/tasks"
)

// Stats is a snapshot of the task traffic a monitor has observed.
type Stats struct {
	// Enqueued, Started, Succeeded, and Failed count task events.
	Enqueued  int
	Started   int
	Succeeded int
	Failed    int

	// ByKind counts terminal outcomes per task kind.
	ByKind map[string]int
}

// MonitorAgent passively observes the task stream on a shared bus and
// keeps counters. It accepts no tasks itself; Submit always returns
// ErrNotSupported. Pausing a monitor suspends counting without
// unsubscribing.
type MonitorAgent struct {
	id      string
	logger  *logging.Logger
	machine *lifecycle.Machine

	mu    sync.Mutex
	stats Stats
}

var _ Agent = (*MonitorAgent)(nil)

// NewMonitorAgent creates a monitor subscribed to the task events on
// the given bus. The bus is required; a monitor without a stream to
// watch is useless.
func NewMonitorAgent(deps Deps) (*MonitorAgent, error) {
	if deps.Bus == nil {
		return nil, ErrBusRequired
	}
	if deps.ID == "" {
		deps.ID = uuid.New().String()
	}
	if deps.Logger == nil {
		deps.Logger = logging.New()
	}

	m := &MonitorAgent{
		id:     deps.ID,
		logger: deps.Logger.WithComponent("monitor"),
	}
	m.machine = lifecycle.New(func(from, to lifecycle.State) {
		m.logger.StateChanged(m.id, from.String(), to.String())
	})
	m.stats.ByKind = make(map[string]int)

	for _, eventType := range []eventbus.Type{
		eventbus.TaskEnqueued,
		eventbus.TaskStarted,
		eventbus.TaskSucceeded,
		eventbus.TaskFailed,
	} {
		if err := deps.Bus.Subscribe(eventType, m.observe); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ID returns the monitor's identifier.
func (m *MonitorAgent) ID() string {
	return m.id
}

// State returns the current lifecycle state.
func (m *MonitorAgent) State() lifecycle.State {
	return m.machine.State()
}

// Start begins counting.
func (m *MonitorAgent) Start() error {
	return m.machine.Start()
}

// Submit is not supported; monitors observe, they do not execute.
func (m *MonitorAgent) Submit(t *tasks.Task) error {
	return ErrNotSupported
}

// Pause suspends counting. Events arriving while paused are dropped.
func (m *MonitorAgent) Pause() error {
	return m.machine.Pause()
}

// Resume continues counting.
func (m *MonitorAgent) Resume() error {
	return m.machine.Resume()
}

// Stop ends the monitor. Counters remain readable afterwards.
func (m *MonitorAgent) Stop(grace time.Duration) error {
	return m.machine.Stop()
}

// Stats returns a copy of the current counters.
func (m *MonitorAgent) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.stats
	snapshot.ByKind = make(map[string]int, len(m.stats.ByKind))
	for k, v := range m.stats.ByKind {
		snapshot.ByKind[k] = v
	}
	return snapshot
}

// observe is the bus handler feeding the counters.
func (m *MonitorAgent) observe(e eventbus.Event) error {
	if m.machine.State() != lifecycle.StateRunning {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch e.Type {
	case eventbus.TaskEnqueued:
		m.stats.Enqueued++
	case eventbus.TaskStarted:
		m.stats.Started++
	case eventbus.TaskSucceeded:
		m.stats.Succeeded++
		m.countKind(e)
	case eventbus.TaskFailed:
		m.stats.Failed++
		m.countKind(e)
	}
	return nil
}

func (m *MonitorAgent) countKind(e eventbus.Event) {
	if t, ok := e.Data.(*tasks.Task); ok {
		m.stats.ByKind[t.Kind]++
	}
}
