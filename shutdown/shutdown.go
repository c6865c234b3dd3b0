// Package shutdown coordinates phased teardown of an agent's
// components. Handlers register with a phase number; lower phases run
// first, handlers within a phase run concurrently, and every handler
// result is reported so a partial teardown is visible instead of
// silent. The whole run shares one deadline derived from the caller's
// grace period.
package shutdown

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Common errors.
var (
	// ErrAlreadyRun indicates the coordinator has already executed.
	ErrAlreadyRun = errors.New("shutdown already run")

	// ErrDeadline indicates the context expired before all phases ran.
	ErrDeadline = errors.New("shutdown deadline exceeded")
)

// Handler tears down one component. The context carries the shared
// shutdown deadline.
type Handler func(ctx context.Context) error

// HandlerResult records one handler's teardown outcome.
type HandlerResult struct {
	// Name identifies the handler.
	Name string

	// Phase the handler ran in.
	Phase int

	// Duration is how long the handler took.
	Duration time.Duration

	// Err is the handler's error, if any.
	Err error
}

// Report is the outcome of a full shutdown run.
type Report struct {
	// TotalDuration covers all phases.
	TotalDuration time.Duration

	// Results holds one entry per executed handler.
	Results []HandlerResult

	// Err is ErrDeadline if phases were skipped, nil otherwise.
	// Individual handler failures do not set it; they are in Results.
	Err error
}

// FailedHandlers returns the names of handlers that returned errors.
func (r *Report) FailedHandlers() []string {
	var failed []string
	for _, hr := range r.Results {
		if hr.Err != nil {
			failed = append(failed, hr.Name)
		}
	}
	return failed
}

// registration holds a registered handler with its metadata.
type registration struct {
	name    string
	handler Handler
	phase   int
}

// Coordinator runs registered handlers in phase order, once.
type Coordinator struct {
	mu       sync.Mutex
	handlers []registration
	ran      bool
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Register adds a handler to run in the given phase. Lower phases run
// first; handlers sharing a phase run concurrently.
func (c *Coordinator) Register(name string, phase int, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, handler: h, phase: phase})
}

// Run executes all phases in order and returns the report. Handler
// failures never abort the run; remaining handlers still execute so
// teardown is as complete as possible. A second Run returns
// ErrAlreadyRun with a nil report.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	c.ran = true
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	start := time.Now()
	report := &Report{
		Results: make([]HandlerResult, 0, len(handlers)),
	}

	for _, group := range groupByPhase(handlers) {
		select {
		case <-ctx.Done():
			report.Err = ErrDeadline
			report.TotalDuration = time.Since(start)
			return report, nil
		default:
		}
		report.Results = append(report.Results, runPhase(ctx, group)...)
	}

	report.TotalDuration = time.Since(start)
	return report, nil
}

// runPhase executes one phase's handlers concurrently.
func runPhase(ctx context.Context, group []registration) []HandlerResult {
	results := make([]HandlerResult, len(group))
	var wg sync.WaitGroup

	for i, reg := range group {
		wg.Add(1)
		go func(idx int, r registration) {
			defer wg.Done()
			begin := time.Now()
			err := r.handler(ctx)
			results[idx] = HandlerResult{
				Name:     r.name,
				Phase:    r.phase,
				Duration: time.Since(begin),
				Err:      err,
			}
		}(i, reg)
	}

	wg.Wait()
	return results
}

// groupByPhase splits phase-sorted handlers into consecutive groups.
func groupByPhase(handlers []registration) [][]registration {
	if len(handlers) == 0 {
		return nil
	}

	var groups [][]registration
	var current []registration
	phase := handlers[0].phase

	for _, h := range handlers {
		if h.phase != phase {
			groups = append(groups, current)
			current = nil
			phase = h.phase
		}
		current = append(current, h)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
