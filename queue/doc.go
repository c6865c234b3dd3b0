// Package queue provides the thread-safe priority queue feeding the
// worker pool.
//
// Ordering is strict: higher priority first, FIFO among equal
// priorities (a binary heap keyed by priority and insertion sequence).
// Dequeue suspends on a condition variable until work arrives, the
// timeout elapses, or the queue closes; it never busy-polls.
//
// Close uses drain-then-close semantics: tasks enqueued before Close
// are still delivered, and only once the queue is empty do blocked and
// subsequent Dequeue calls fail with ErrClosed.
package queue
