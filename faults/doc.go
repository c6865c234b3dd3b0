// Package faults provides structured failure records for the task core.
//
// # Overview
//
// A Fault carries a machine-readable code, a category with retry
// semantics, and the identity of the task it relates to. Validation
// faults surface synchronously to callers; processing faults are
// captured into the failing task and announced over the event bus,
// never propagated out of the worker loop.
//
// # Usage
//
// Create faults with a code:
//
//	f := faults.New(faults.CodeInvalidConfig, "max_workers must be 1-100")
//
// Or use the per-code constructors:
//
//	f := faults.Processing(task.ID, task.Kind, err)
//
// Inspect failures without string matching:
//
//	if faults.IsCode(err, faults.CodeQueueTimeout) {
//	    // retry the dequeue
//	}
//
// Faults marshal to JSON for hand-off to external persistence.
package faults
