package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vinayprograms/agentcore/tasks"
)

func TestPriorityOrdering(t *testing.T) {
	q := New(DefaultConfig())

	low := tasks.New("echo", 1, nil)
	high := tasks.New("echo", 9, nil)
	mid := tasks.New("echo", 5, nil)

	for _, task := range []*tasks.Task{low, high, mid} {
		if err := q.Enqueue(task); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	want := []*tasks.Task{high, mid, low}
	for i, expected := range want {
		got, err := q.Dequeue(time.Second)
		if err != nil {
			t.Fatalf("Dequeue %d failed: %v", i, err)
		}
		if got.ID != expected.ID {
			t.Errorf("Dequeue %d = priority %d, want priority %d", i, got.Priority, expected.Priority)
		}
	}
}

func TestFIFOAmongEqualPriorities(t *testing.T) {
	q := New(DefaultConfig())

	var order []string
	for i := 0; i < 10; i++ {
		task := tasks.New("echo", 5, nil)
		order = append(order, task.ID)
		if err := q.Enqueue(task); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	for i, wantID := range order {
		got, err := q.Dequeue(time.Second)
		if err != nil {
			t.Fatalf("Dequeue %d failed: %v", i, err)
		}
		if got.ID != wantID {
			t.Errorf("Dequeue %d broke FIFO order among equal priorities", i)
		}
	}
}

func TestEnqueueValidation(t *testing.T) {
	q := New(Config{MinPriority: 0, MaxPriority: 10})

	tests := []struct {
		name string
		task *tasks.Task
	}{
		{"empty kind", tasks.New("", 5, nil)},
		{"priority too high", tasks.New("echo", 11, nil)},
		{"priority too low", tasks.New("echo", -1, nil)},
	}

	for _, tt := range tests {
		if err := q.Enqueue(tt.task); !errors.Is(err, ErrInvalidTask) {
			t.Errorf("%s: Enqueue = %v, want ErrInvalidTask", tt.name, err)
		}
	}

	if q.Size() != 0 {
		t.Errorf("rejected tasks must not be stored, size = %d", q.Size())
	}
}

func TestDequeueTimeout(t *testing.T) {
	q := New(DefaultConfig())

	start := time.Now()
	_, err := q.Dequeue(50 * time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Dequeue = %v, want ErrTimeout", err)
	}
	if elapsed < 40*time.Millisecond {
		t.Errorf("Dequeue returned after %v, before the timeout", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Dequeue took %v, far past the timeout", elapsed)
	}
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := New(DefaultConfig())

	done := make(chan *tasks.Task, 1)
	go func() {
		got, err := q.Dequeue(2 * time.Second)
		if err != nil {
			t.Errorf("Dequeue failed: %v", err)
		}
		done <- got
	}()

	// Give the dequeuer time to block.
	time.Sleep(50 * time.Millisecond)

	task := tasks.New("echo", 1, nil)
	if err := q.Enqueue(task); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	select {
	case got := <-done:
		if got.ID != task.ID {
			t.Error("dequeued wrong task")
		}
	case <-time.After(time.Second):
		t.Fatal("blocked dequeuer was not woken by enqueue")
	}
}

func TestCloseDrainsBeforeFailing(t *testing.T) {
	q := New(DefaultConfig())

	task := tasks.New("echo", 1, nil)
	if err := q.Enqueue(task); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	q.Close()

	// Item enqueued before close is still delivered.
	got, err := q.Dequeue(time.Second)
	if err != nil {
		t.Fatalf("Dequeue after close = %v, want drained task", err)
	}
	if got.ID != task.ID {
		t.Error("dequeued wrong task")
	}

	// Then the queue reports closed.
	if _, err := q.Dequeue(time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("Dequeue on empty closed queue = %v, want ErrClosed", err)
	}

	// New work is rejected.
	if err := q.Enqueue(tasks.New("echo", 1, nil)); !errors.Is(err, ErrClosed) {
		t.Errorf("Enqueue after close = %v, want ErrClosed", err)
	}
}

func TestCloseWakesBlockedDequeuers(t *testing.T) {
	q := New(DefaultConfig())

	errCh := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := q.Dequeue(5 * time.Second)
			errCh <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	q.Close()

	for i := 0; i < 3; i++ {
		select {
		case err := <-errCh:
			if !errors.Is(err, ErrClosed) {
				t.Errorf("blocked dequeuer got %v, want ErrClosed", err)
			}
		case <-time.After(time.Second):
			t.Fatal("blocked dequeuer was not woken by close")
		}
	}
}

func TestCloseIdempotent(t *testing.T) {
	q := New(DefaultConfig())
	q.Close()
	q.Close()

	if !q.Closed() {
		t.Error("queue should report closed")
	}
}

func TestDrain(t *testing.T) {
	q := New(DefaultConfig())
	for i := 0; i < 5; i++ {
		q.Enqueue(tasks.New("echo", i, nil))
	}

	drained := q.Drain()
	if len(drained) != 5 {
		t.Errorf("Drain returned %d tasks, want 5", len(drained))
	}
	if q.Size() != 0 {
		t.Errorf("queue size after drain = %d, want 0", q.Size())
	}
}

func TestConcurrentProducersConsumers(t *testing.T) {
	q := New(DefaultConfig())

	const producers = 4
	const perProducer = 50
	const total = producers * perProducer

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Enqueue(tasks.New("echo", i%10, nil)); err != nil {
					t.Errorf("Enqueue failed: %v", err)
				}
			}
		}(p)
	}

	var mu sync.Mutex
	received := make(map[string]bool)
	var cwg sync.WaitGroup
	for c := 0; c < 3; c++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for {
				task, err := q.Dequeue(200 * time.Millisecond)
				if err != nil {
					return
				}
				mu.Lock()
				if received[task.ID] {
					t.Errorf("task %s dequeued twice", task.ID)
				}
				received[task.ID] = true
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	cwg.Wait()

	if len(received) != total {
		t.Errorf("received %d unique tasks, want %d", len(received), total)
	}
}
