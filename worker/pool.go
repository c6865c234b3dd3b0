package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vinayprograms/agentcore/eventbus"
	"github.com/vinayprograms/agentcore/faults"
	"github.com/vinayprograms/agentcore/logging"
	"github.com/vinayprograms/agentcore/queue"
	"github.com/vinayprograms/agentcore/tasks"
)

// Config holds pool configuration.
type Config struct {
	// Queue feeds the workers. Required.
	Queue *queue.Queue

	// Strategies resolves task kinds. Required.
	Strategies *Registry

	// Bus receives task lifecycle events. Optional.
	Bus *eventbus.Bus

	// Logger receives pool observability events. Optional.
	Logger *logging.Logger

	// AgentID tags published events with the owning agent. Optional.
	AgentID string

	// DequeueTimeout bounds each worker's blocking dequeue so workers
	// re-check pause and stop signals. Default: 250ms.
	DequeueTimeout time.Duration
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Queue == nil {
		return fmt.Errorf("%w: queue is required", ErrInvalidConfig)
	}
	if c.Strategies == nil {
		return fmt.Errorf("%w: strategy registry is required", ErrInvalidConfig)
	}
	return nil
}

// Pool is a bounded set of concurrent workers. Each worker loops:
// dequeue, execute via the strategy for the task's kind, record the
// terminal state, publish the completion or failure event, repeat.
// One task's failure never terminates the worker or the pool.
type Pool struct {
	queue          *queue.Queue
	strategies     *Registry
	bus            *eventbus.Bus
	logger         *logging.Logger
	agentID        string
	dequeueTimeout time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	gateMu   sync.Mutex
	gateOpen bool
	gateCh   chan struct{}

	inflightMu sync.Mutex
	inflight   map[int]*tasks.Task
}

// NewPool creates a pool from the given configuration.
func NewPool(cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DequeueTimeout <= 0 {
		cfg.DequeueTimeout = 250 * time.Millisecond
	}

	open := make(chan struct{})
	close(open)

	return &Pool{
		queue:          cfg.Queue,
		strategies:     cfg.Strategies,
		bus:            cfg.Bus,
		logger:         cfg.Logger,
		agentID:        cfg.AgentID,
		dequeueTimeout: cfg.DequeueTimeout,
		gateOpen:       true,
		gateCh:         open,
		inflight:       make(map[int]*tasks.Task),
	}, nil
}

// Start spawns concurrency workers. Returns ErrInvalidConfig if
// concurrency < 1 and ErrAlreadyStarted on a second call.
func (p *Pool) Start(concurrency int) error {
	if concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be >= 1, got %d", ErrInvalidConfig, concurrency)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true
	p.stopCh = make(chan struct{})
	p.ctx, p.cancel = context.WithCancel(context.Background())

	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go p.run(i)
	}

	if p.logger != nil {
		p.logger.PoolStarted(concurrency)
	}
	return nil
}

// Stop signals workers to stop dequeuing and waits up to grace for
// in-flight tasks to finish. Tasks still running past the grace
// period are abandoned: each is marked failed with a forced-shutdown
// fault and announced on the bus, so nothing disappears silently.
// This is the only path where a task's terminal state is assigned by
// someone other than its strategy. Stop is idempotent.
func (p *Pool) Stop(grace time.Duration) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	p.mu.Unlock()

	start := time.Now()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	if grace > 0 {
		select {
		case <-done:
		case <-time.After(grace):
		}
	}

	abandoned := p.failInflight()
	p.cancel()

	if p.logger != nil {
		p.logger.PoolStopped(abandoned, time.Since(start))
	}
	return nil
}

// Submit enqueues a task and announces it on the bus. Convenience
// wrapper over the queue's Enqueue.
func (p *Pool) Submit(t *tasks.Task) error {
	if err := p.queue.Enqueue(t); err != nil {
		return err
	}
	p.publish(eventbus.TaskEnqueued, t)
	return nil
}

// Pause suspends dequeuing. In-flight tasks are not interrupted.
func (p *Pool) Pause() {
	p.gateMu.Lock()
	defer p.gateMu.Unlock()
	if p.gateOpen {
		p.gateOpen = false
		p.gateCh = make(chan struct{})
	}
}

// Resume reopens the dequeue gate.
func (p *Pool) Resume() {
	p.gateMu.Lock()
	defer p.gateMu.Unlock()
	if !p.gateOpen {
		p.gateOpen = true
		close(p.gateCh)
	}
}

// gate returns a channel that is closed while dequeuing is allowed.
func (p *Pool) gate() <-chan struct{} {
	p.gateMu.Lock()
	defer p.gateMu.Unlock()
	return p.gateCh
}

// InflightCount returns the number of tasks currently executing.
func (p *Pool) InflightCount() int {
	p.inflightMu.Lock()
	defer p.inflightMu.Unlock()
	return len(p.inflight)
}

// run is one worker's loop.
func (p *Pool) run(id int) {
	defer p.wg.Done()
	workerID := fmt.Sprintf("worker-%d", id)

	for {
		select {
		case <-p.stopCh:
			return
		case <-p.gate():
		}
		// Re-check stop after the gate: both may be ready at once.
		select {
		case <-p.stopCh:
			return
		default:
		}

		t, err := p.queue.Dequeue(p.dequeueTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) {
				return
			}
			// Timeout: loop around and re-check signals.
			continue
		}

		// A pause that landed while this worker was blocked in Dequeue
		// must still hold the task back: wait at the gate before
		// executing. A stop while waiting fails the claimed task so it
		// is not silently lost.
		select {
		case <-p.stopCh:
			fault := faults.ForcedShutdown(t.ID, t.Kind)
			if t.FailPending(fault) == nil {
				if p.logger != nil {
					p.logger.TaskFailed(t.ID, t.Kind, fault)
				}
				p.publish(eventbus.TaskFailed, t)
			}
			return
		case <-p.gate():
		}

		p.execute(id, workerID, t)
	}
}

// execute runs one task to its terminal state.
func (p *Pool) execute(id int, workerID string, t *tasks.Task) {
	p.setInflight(id, t)
	defer p.clearInflight(id)

	if err := t.Start(); err != nil {
		// Already terminal; nothing to run.
		return
	}

	if p.logger != nil {
		p.logger.TaskStarted(t.ID, t.Kind, workerID)
	}
	p.publish(eventbus.TaskStarted, t)

	strategy, ok := p.strategies.Get(t.Kind)
	if !ok {
		p.fail(t, faults.UnknownStrategy(t.ID, t.Kind))
		return
	}

	result, err := p.runStrategy(strategy, t)
	if err != nil {
		p.fail(t, faults.Processing(t.ID, t.Kind, err))
		return
	}

	if err := t.Succeed(result); err != nil {
		// Forced shutdown won the race; the failure was already announced.
		return
	}
	if p.logger != nil {
		p.logger.TaskSucceeded(t.ID, t.Kind, t.Duration())
	}
	p.publish(eventbus.TaskSucceeded, t)
}

// runStrategy invokes the strategy, converting a panic into an error
// so a misbehaving strategy cannot take the worker down.
func (p *Pool) runStrategy(s Strategy, t *tasks.Task) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("strategy panic: %v", r)
		}
	}()
	return s.Process(p.ctx, t)
}

// fail records a terminal failure and announces it. A no-op if the
// task already reached a terminal state through the forced-shutdown
// path.
func (p *Pool) fail(t *tasks.Task, fault *faults.Fault) {
	if err := t.Fail(fault); err != nil {
		return
	}
	if p.logger != nil {
		p.logger.TaskFailed(t.ID, t.Kind, fault)
	}
	p.publish(eventbus.TaskFailed, t)
}

// failInflight force-fails every task still executing. Returns the
// number of tasks marked failed.
func (p *Pool) failInflight() int {
	p.inflightMu.Lock()
	running := make([]*tasks.Task, 0, len(p.inflight))
	for _, t := range p.inflight {
		running = append(running, t)
	}
	p.inflightMu.Unlock()

	abandoned := 0
	for _, t := range running {
		fault := faults.ForcedShutdown(t.ID, t.Kind)
		err := t.Fail(fault)
		if errors.Is(err, tasks.ErrNotRunning) {
			err = t.FailPending(fault)
		}
		if err != nil {
			continue
		}
		abandoned++
		if p.logger != nil {
			p.logger.TaskFailed(t.ID, t.Kind, fault)
		}
		p.publish(eventbus.TaskFailed, t)
	}
	return abandoned
}

func (p *Pool) setInflight(id int, t *tasks.Task) {
	p.inflightMu.Lock()
	p.inflight[id] = t
	p.inflightMu.Unlock()
}

func (p *Pool) clearInflight(id int) {
	p.inflightMu.Lock()
	delete(p.inflight, id)
	p.inflightMu.Unlock()
}

// publish sends a task event carrying a clone of the task's current
// state, so subscribers never touch the live record.
func (p *Pool) publish(eventType eventbus.Type, t *tasks.Task) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(eventbus.Event{
		Type:    eventType,
		AgentID: p.agentID,
		Data:    t.Clone(),
	})
}
