// Package worker provides the bounded worker pool and the pluggable
// processing strategies it executes.
//
// # Overview
//
// A Pool owns a fixed number of workers, each looping over the shared
// queue: dequeue, resolve the strategy for the task's kind, execute,
// record the terminal state, publish the event. Failures are scoped to
// the task: a strategy error, a panic, or an unknown kind fails that
// one task and the worker keeps going.
//
// # Strategies
//
// A Strategy is the single capability a behavior must implement:
//
//	type Strategy interface {
//	    Process(ctx context.Context, t *tasks.Task) (map[string]any, error)
//	}
//
// Concrete strategies register in a Registry under a kind string:
//
//	reg := worker.NewRegistry()
//	reg.Register("echo", worker.Echo())
//	reg.Register("resize", &resizeStrategy{})
//
// # Shutdown
//
// Stop(grace) stops dequeuing immediately and waits up to grace for
// in-flight work. Anything still running afterwards is abandoned and
// explicitly marked failed with a forced-shutdown fault: an audit
// trail, never a silent drop.
package worker
