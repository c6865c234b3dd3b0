package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/agentcore/archive"
	"github.com/vinayprograms/agentcore/config"
	"github.com/vinayprograms/agentcore/eventbus"
	"github.com/vinayprograms/agentcore/faults"
	"github.com/vinayprograms/agentcore/lifecycle"
	"github.com/vinayprograms/agentcore/logging"
	"github.com/vinayprograms/agentcore/queue"
	"github.com/vinayprograms/agentcore/shutdown"
	"github.com/vinayprograms/agentcore/tasks"
	"github.com/vinayprograms/agentcore/worker"
)

// Deps carries everything an agent constructor may need. Only Config
// is interpreted by every agent kind; the rest are optional
// collaborators with sensible defaults.
type Deps struct {
	// ID identifies the agent. Generated when empty.
	ID string

	// Config supplies validated tuning values.
	Config config.Config

	// Bus carries lifecycle and task events. Created internally when
	// nil; pass a shared bus to observe several agents on one stream.
	Bus *eventbus.Bus

	// Logger receives observability events. Created internally when nil.
	Logger *logging.Logger

	// Strategies resolves task kinds. When nil, a registry with the
	// built-in strategies is used.
	Strategies *worker.Registry

	// Archive receives terminal task records. Optional. The agent
	// assumes ownership and closes it during Stop.
	Archive archive.Archive
}

// TaskAgent is the standard agent: a priority queue feeding a bounded
// worker pool, governed by the lifecycle state machine. Every task it
// accepts reaches a terminal state, observed on the bus, even across
// a forced shutdown.
type TaskAgent struct {
	id      string
	cfg     config.Config
	bus     *eventbus.Bus
	logger  *logging.Logger
	queue   *queue.Queue
	pool    *worker.Pool
	machine *lifecycle.Machine
	archive archive.Archive
}

var _ Agent = (*TaskAgent)(nil)

// NewTaskAgent assembles a task agent from its dependencies. The
// configuration is validated here so a misassembled agent fails at
// construction, not mid-run.
func NewTaskAgent(deps Deps) (*TaskAgent, error) {
	if err := deps.Config.Validate(); err != nil {
		return nil, err
	}

	if deps.ID == "" {
		deps.ID = uuid.New().String()
	}
	if deps.Logger == nil {
		deps.Logger = logging.New()
	}
	if deps.Bus == nil {
		deps.Bus = eventbus.New(deps.Logger)
	}
	if deps.Strategies == nil {
		deps.Strategies = worker.NewRegistry()
		worker.RegisterBuiltins(deps.Strategies)
	}

	a := &TaskAgent{
		id:      deps.ID,
		cfg:     deps.Config,
		bus:     deps.Bus,
		logger:  deps.Logger.WithComponent("agent"),
		archive: deps.Archive,
	}

	a.machine = lifecycle.New(a.announceState)

	a.queue = queue.New(queue.Config{
		MinPriority: deps.Config.MinPriority,
		MaxPriority: deps.Config.MaxPriority,
		Logger:      deps.Logger.WithComponent("queue"),
	})

	pool, err := worker.NewPool(worker.Config{
		Queue:          a.queue,
		Strategies:     deps.Strategies,
		Bus:            deps.Bus,
		Logger:         deps.Logger.WithComponent("pool"),
		AgentID:        deps.ID,
		DequeueTimeout: deps.Config.DequeueTimeout(),
	})
	if err != nil {
		return nil, err
	}
	a.pool = pool

	if a.archive != nil {
		if err := a.subscribeArchive(); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// ID returns the agent's identifier.
func (a *TaskAgent) ID() string {
	return a.id
}

// State returns the current lifecycle state.
func (a *TaskAgent) State() lifecycle.State {
	return a.machine.State()
}

// Start transitions to running and spawns the worker pool.
func (a *TaskAgent) Start() error {
	if err := a.machine.Start(); err != nil {
		return err
	}
	return a.pool.Start(a.cfg.MaxWorkers)
}

// Submit enqueues a task. Tasks are accepted while idle or paused;
// they wait until the agent runs. After Stop the queue is closed and
// Submit returns an error.
func (a *TaskAgent) Submit(t *tasks.Task) error {
	return a.pool.Submit(t)
}

// Pause transitions to paused and holds workers at the dequeue gate.
// In-flight tasks run to completion.
func (a *TaskAgent) Pause() error {
	if err := a.machine.Pause(); err != nil {
		return err
	}
	a.pool.Pause()
	return nil
}

// Resume transitions back to running and reopens the gate.
func (a *TaskAgent) Resume() error {
	if err := a.machine.Resume(); err != nil {
		return err
	}
	a.pool.Resume()
	return nil
}

// Stop transitions to stopped and tears the agent down in phases:
// first the pool (waiting up to grace for in-flight tasks), then the
// queue (undelivered tasks are failed with forced-shutdown faults and
// announced), then the archive. Teardown phases run even when the
// grace period is exhausted, so no accepted task is left without a
// terminal state.
func (a *TaskAgent) Stop(grace time.Duration) error {
	if err := a.machine.Stop(); err != nil {
		return err
	}

	// The deadline bounds the phases after the pool's own grace wait;
	// the audit phases are quick but must not hang forever on a stuck
	// archive.
	ctx, cancel := context.WithTimeout(context.Background(), grace+5*time.Second)
	defer cancel()

	coord := shutdown.NewCoordinator()
	coord.Register("pool", 1, func(ctx context.Context) error {
		return a.pool.Stop(grace)
	})
	coord.Register("queue", 2, func(ctx context.Context) error {
		a.closeAndFailQueue()
		return nil
	})
	if a.archive != nil {
		coord.Register("archive", 3, func(ctx context.Context) error {
			return a.archive.Close()
		})
	}

	report, err := coord.Run(ctx)
	if err != nil {
		return err
	}
	if failed := report.FailedHandlers(); len(failed) > 0 {
		a.logger.Warn("shutdown_incomplete", map[string]any{
			"agent":   a.id,
			"failed":  fmt.Sprintf("%v", failed),
			"elapsed": report.TotalDuration.String(),
		})
	}
	return report.Err
}

// announceState is the lifecycle notify hook.
func (a *TaskAgent) announceState(from, to lifecycle.State) {
	a.logger.StateChanged(a.id, from.String(), to.String())
	a.bus.Publish(eventbus.Event{
		Type:    eventbus.AgentState,
		AgentID: a.id,
		Data:    eventbus.StateChange{From: from.String(), To: to.String()},
	})
}

// closeAndFailQueue closes the queue and fails every undelivered task
// so the abandoned work leaves an audit trail.
func (a *TaskAgent) closeAndFailQueue() {
	a.queue.Close()
	for _, t := range a.queue.Drain() {
		fault := faults.ForcedShutdown(t.ID, t.Kind)
		if t.FailPending(fault) != nil {
			continue
		}
		a.logger.TaskFailed(t.ID, t.Kind, fault)
		a.bus.Publish(eventbus.Event{
			Type:    eventbus.TaskFailed,
			AgentID: a.id,
			Data:    t.Clone(),
		})
	}
}

// subscribeArchive routes this agent's terminal task events into the
// archive. An archive failure surfaces through the bus report and the
// logger; it never affects the task's outcome.
func (a *TaskAgent) subscribeArchive() error {
	record := func(e eventbus.Event) error {
		if e.AgentID != a.id {
			return nil
		}
		t, ok := e.Data.(*tasks.Task)
		if !ok {
			return nil
		}
		return a.archive.Put(context.Background(), t)
	}

	for _, eventType := range []eventbus.Type{eventbus.TaskSucceeded, eventbus.TaskFailed} {
		if err := a.bus.Subscribe(eventType, record); err != nil {
			return err
		}
	}
	return nil
}
