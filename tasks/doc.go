// Package tasks defines the unit of work processed by the core.
//
// A Task is immutable after creation except for its status lifecycle:
//
//	Pending → Running → Succeeded
//	               ↓
//	             Failed
//
// Transitions are monotonic and guarded; Succeed records a result
// exactly once, Fail records a fault exactly once, and the two are
// mutually exclusive. Once terminal, a task is read-only and owned by
// whoever inspects it; the queue and pool keep no references.
//
// # Ownership
//
// A task belongs to exactly one queue slot until a worker dequeues it.
// Dequeue transfers ownership to the worker, which holds it until the
// terminal transition. Observers (event subscribers, archives) receive
// deep Clones, never the live record.
package tasks
