package faults

// Category classifies failures by their nature and retry semantics.
type Category string

const (
	// CategoryValidation indicates the caller supplied bad input.
	// Examples: empty task kind, priority outside configured bounds.
	CategoryValidation Category = "validation"

	// CategoryTransient indicates temporary conditions where retry may succeed.
	// Examples: dequeue timeout, queue briefly saturated.
	CategoryTransient Category = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: no strategy registered for the task kind.
	CategoryPermanent Category = "permanent"

	// CategoryShutdown indicates work abandoned because the pool was stopping.
	CategoryShutdown Category = "shutdown"

	// CategoryInternal indicates unexpected errors or bugs.
	CategoryInternal Category = "internal"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// IsRetryable returns true if failures in this category may succeed on retry.
func (c Category) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryShutdown:
		return true
	default:
		return false
	}
}

// Code identifies a specific failure type within a category.
type Code string

// Failure codes for the task-processing core.
const (
	// Validation failures, surfaced synchronously to the caller.
	CodeInvalidTask       Code = "INVALID_TASK"       // Task rejected at enqueue
	CodeInvalidConfig     Code = "INVALID_CONFIG"     // Configuration out of range
	CodeInvalidTransition Code = "INVALID_TRANSITION" // Lifecycle verb not allowed in current state

	// Queue conditions, surfaced to the blocked caller.
	CodeQueueTimeout Code = "QUEUE_TIMEOUT" // Dequeue wait elapsed
	CodeQueueClosed  Code = "QUEUE_CLOSED"  // Queue closed and drained

	// Per-task processing failures, captured into the task record.
	CodeUnknownStrategy Code = "UNKNOWN_STRATEGY" // No strategy registered for the kind
	CodeProcessing      Code = "PROCESSING"       // Strategy returned an error
	CodeForcedShutdown  Code = "FORCED_SHUTDOWN"  // In-flight task abandoned at pool stop

	// Catch-all.
	CodeInternal Code = "INTERNAL" // Unexpected failure
)

// String returns the string representation of the code.
func (c Code) String() string {
	return string(c)
}

// DefaultCategory returns the category a code belongs to.
func (c Code) DefaultCategory() Category {
	switch c {
	case CodeInvalidTask, CodeInvalidConfig, CodeInvalidTransition:
		return CategoryValidation
	case CodeQueueTimeout:
		return CategoryTransient
	case CodeQueueClosed:
		return CategoryPermanent
	case CodeUnknownStrategy:
		return CategoryPermanent
	case CodeProcessing:
		return CategoryPermanent
	case CodeForcedShutdown:
		return CategoryShutdown
	default:
		return CategoryInternal
	}
}

// Description returns a human-readable default message for the code.
func (c Code) Description() string {
	switch c {
	case CodeInvalidTask:
		return "task failed validation"
	case CodeInvalidConfig:
		return "configuration value out of range"
	case CodeInvalidTransition:
		return "lifecycle transition not permitted"
	case CodeQueueTimeout:
		return "dequeue timed out"
	case CodeQueueClosed:
		return "queue closed"
	case CodeUnknownStrategy:
		return "no strategy registered for task kind"
	case CodeProcessing:
		return "strategy processing failed"
	case CodeForcedShutdown:
		return "task abandoned during pool shutdown"
	default:
		return "internal error"
	}
}
