package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vinayprograms/agentcore/eventbus"
	"github.com/vinayprograms/agentcore/faults"
	"github.com/vinayprograms/agentcore/queue"
	"github.com/vinayprograms/agentcore/tasks"
)

func newTestPool(t *testing.T, bus *eventbus.Bus) (*Pool, *queue.Queue, *Registry) {
	t.Helper()

	q := queue.New(queue.DefaultConfig())
	reg := NewRegistry()
	reg.Register(KindEcho, Echo())
	reg.Register(KindSleep, Sleep())

	p, err := NewPool(Config{
		Queue:          q,
		Strategies:     reg,
		Bus:            bus,
		AgentID:        "test-agent",
		DequeueTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	return p, q, reg
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestNewPoolValidation(t *testing.T) {
	_, err := NewPool(Config{Strategies: NewRegistry()})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("missing queue = %v, want ErrInvalidConfig", err)
	}

	_, err = NewPool(Config{Queue: queue.New(queue.DefaultConfig())})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("missing registry = %v, want ErrInvalidConfig", err)
	}
}

func TestStartValidation(t *testing.T) {
	p, _, _ := newTestPool(t, nil)

	if err := p.Start(0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Start(0) = %v, want ErrInvalidConfig", err)
	}
	if err := p.Start(-3); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Start(-3) = %v, want ErrInvalidConfig", err)
	}

	if err := p.Start(2); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop(time.Second)

	if err := p.Start(2); err != ErrAlreadyStarted {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestStopBeforeStart(t *testing.T) {
	p, _, _ := newTestPool(t, nil)
	if err := p.Stop(time.Second); err != ErrNotStarted {
		t.Errorf("Stop before Start = %v, want ErrNotStarted", err)
	}
}

func TestEchoRoundTrip(t *testing.T) {
	bus := eventbus.New(nil)
	p, _, _ := newTestPool(t, bus)

	done := make(chan *tasks.Task, 1)
	bus.Subscribe(eventbus.TaskSucceeded, func(e eventbus.Event) error {
		done <- e.Data.(*tasks.Task)
		return nil
	})

	if err := p.Start(2); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop(time.Second)

	task := tasks.New(KindEcho, 5, map[string]any{"x": 1})
	if err := p.Submit(task); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case got := <-done:
		if got.ID != task.ID {
			t.Fatal("succeeded event carries the wrong task")
		}
		if got.Status() != tasks.StatusSucceeded {
			t.Errorf("status = %s, want succeeded", got.Status())
		}
		if got.Result()["x"] != 1 {
			t.Errorf("result = %v, want x=1", got.Result())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task did not complete")
	}

	if task.Status() != tasks.StatusSucceeded {
		t.Errorf("live task status = %s, want succeeded", task.Status())
	}
}

func TestUnknownKindFailsTaskNotPool(t *testing.T) {
	bus := eventbus.New(nil)
	p, _, _ := newTestPool(t, bus)

	failed := make(chan *tasks.Task, 1)
	succeeded := make(chan *tasks.Task, 1)
	bus.Subscribe(eventbus.TaskFailed, func(e eventbus.Event) error {
		failed <- e.Data.(*tasks.Task)
		return nil
	})
	bus.Subscribe(eventbus.TaskSucceeded, func(e eventbus.Event) error {
		succeeded <- e.Data.(*tasks.Task)
		return nil
	})

	if err := p.Start(1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop(time.Second)

	unknown := tasks.New("no-such-kind", 5, nil)
	p.Submit(unknown)

	select {
	case got := <-failed:
		if !faults.IsCode(got.Err(), faults.CodeUnknownStrategy) {
			t.Errorf("fault code = %s, want UNKNOWN_STRATEGY", faults.GetCode(got.Err()))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("unknown-kind task was not failed")
	}

	// The same single worker must still process subsequent tasks.
	ok := tasks.New(KindEcho, 5, map[string]any{"ok": true})
	p.Submit(ok)

	select {
	case got := <-succeeded:
		if got.ID != ok.ID {
			t.Error("wrong task succeeded")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker loop did not survive the unknown-kind failure")
	}
}

func TestStrategyErrorIsolation(t *testing.T) {
	bus := eventbus.New(nil)
	p, _, reg := newTestPool(t, bus)

	reg.Register("explode", StrategyFunc(func(ctx context.Context, task *tasks.Task) (map[string]any, error) {
		return nil, errors.New("exploded")
	}))

	var succeeded, failed atomic.Int32
	done := make(chan struct{}, 16)
	bus.Subscribe(eventbus.TaskSucceeded, func(e eventbus.Event) error {
		succeeded.Add(1)
		done <- struct{}{}
		return nil
	})
	bus.Subscribe(eventbus.TaskFailed, func(e eventbus.Event) error {
		failed.Add(1)
		done <- struct{}{}
		return nil
	})

	if err := p.Start(3); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop(time.Second)

	// Interleave failing and succeeding tasks.
	const pairs = 5
	for i := 0; i < pairs; i++ {
		p.Submit(tasks.New("explode", 5, nil))
		p.Submit(tasks.New(KindEcho, 5, map[string]any{"i": i}))
	}

	for i := 0; i < pairs*2; i++ {
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("pool stalled after strategy failures")
		}
	}

	if succeeded.Load() != pairs || failed.Load() != pairs {
		t.Errorf("succeeded=%d failed=%d, want %d each", succeeded.Load(), failed.Load(), pairs)
	}
}

func TestStrategyPanicIsolation(t *testing.T) {
	bus := eventbus.New(nil)
	p, _, reg := newTestPool(t, bus)

	reg.Register("panic", StrategyFunc(func(ctx context.Context, task *tasks.Task) (map[string]any, error) {
		panic("worker should survive this")
	}))

	failed := make(chan *tasks.Task, 1)
	bus.Subscribe(eventbus.TaskFailed, func(e eventbus.Event) error {
		failed <- e.Data.(*tasks.Task)
		return nil
	})

	if err := p.Start(1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop(time.Second)

	task := tasks.New("panic", 5, nil)
	p.Submit(task)

	select {
	case got := <-failed:
		if !faults.IsCode(got.Err(), faults.CodeProcessing) {
			t.Errorf("fault code = %s, want PROCESSING", faults.GetCode(got.Err()))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("panicking task was not failed")
	}
}

func TestStopZeroGraceForcesFailure(t *testing.T) {
	bus := eventbus.New(nil)
	p, _, _ := newTestPool(t, bus)

	if err := p.Start(1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	task := tasks.New(KindSleep, 5, map[string]any{"duration_ms": 500})
	p.Submit(task)

	waitFor(t, time.Second, func() bool { return p.InflightCount() == 1 })

	if err := p.Stop(0); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if task.Status() != tasks.StatusFailed {
		t.Fatalf("status after Stop(0) = %s, want failed", task.Status())
	}
	if !faults.IsCode(task.Err(), faults.CodeForcedShutdown) {
		t.Errorf("fault code = %s, want FORCED_SHUTDOWN", faults.GetCode(task.Err()))
	}
}

func TestStopGenerousGraceLetsTaskFinish(t *testing.T) {
	p, _, _ := newTestPool(t, nil)

	if err := p.Start(1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	task := tasks.New(KindSleep, 5, map[string]any{"duration_ms": 100})
	p.Submit(task)

	waitFor(t, time.Second, func() bool { return p.InflightCount() == 1 })

	if err := p.Stop(2 * time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if task.Status() != tasks.StatusSucceeded {
		t.Errorf("status after generous grace = %s, want succeeded", task.Status())
	}
}

func TestStopIdempotent(t *testing.T) {
	p, _, _ := newTestPool(t, nil)
	p.Start(1)

	if err := p.Stop(time.Second); err != nil {
		t.Fatalf("first Stop failed: %v", err)
	}
	if err := p.Stop(time.Second); err != nil {
		t.Errorf("second Stop = %v, want nil", err)
	}
}

func TestPauseStopsDequeuing(t *testing.T) {
	p, _, _ := newTestPool(t, nil)

	if err := p.Start(2); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop(time.Second)

	p.Pause()
	task := tasks.New(KindEcho, 5, map[string]any{"x": 1})
	p.Submit(task)

	// The task must not execute while paused. It either sits in the
	// queue or is held at the gate by a claiming worker; in both cases
	// it stays pending.
	time.Sleep(200 * time.Millisecond)
	if task.Status() != tasks.StatusPending {
		t.Fatalf("status while paused = %s, want pending", task.Status())
	}

	p.Resume()
	waitFor(t, 2*time.Second, func() bool { return task.Status() == tasks.StatusSucceeded })
}

func TestConcurrencyBound(t *testing.T) {
	p, _, reg := newTestPool(t, nil)

	var current, peak atomic.Int32
	var mu sync.Mutex
	reg.Register("track", StrategyFunc(func(ctx context.Context, task *tasks.Task) (map[string]any, error) {
		n := current.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(50 * time.Millisecond)
		current.Add(-1)
		return nil, nil
	}))

	const concurrency = 3
	if err := p.Start(concurrency); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	taskSet := make([]*tasks.Task, 12)
	for i := range taskSet {
		taskSet[i] = tasks.New("track", 5, nil)
		p.Submit(taskSet[i])
	}

	waitFor(t, 5*time.Second, func() bool {
		for _, task := range taskSet {
			if !task.Status().IsTerminal() {
				return false
			}
		}
		return true
	})
	p.Stop(time.Second)

	if peak.Load() > concurrency {
		t.Errorf("peak concurrency = %d, want <= %d", peak.Load(), concurrency)
	}
	for i, task := range taskSet {
		if task.Status() != tasks.StatusSucceeded {
			t.Errorf("task %d status = %s, want succeeded", i, task.Status())
		}
	}
}

func TestSubmitInvalidTask(t *testing.T) {
	p, _, _ := newTestPool(t, nil)

	if err := p.Submit(tasks.New("", 5, nil)); !errors.Is(err, queue.ErrInvalidTask) {
		t.Errorf("Submit invalid task = %v, want ErrInvalidTask", err)
	}
}
