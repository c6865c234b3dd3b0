package worker

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/vinayprograms/agentcore/tasks"
)

// Common errors.
var (
	// ErrInvalidConfig indicates pool configuration out of range.
	ErrInvalidConfig = errors.New("invalid pool configuration")

	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("pool already started")

	// ErrNotStarted indicates Stop was called before Start.
	ErrNotStarted = errors.New("pool not started")

	// ErrInvalidKind indicates an empty strategy kind.
	ErrInvalidKind = errors.New("invalid strategy kind")

	// ErrNilStrategy indicates Register was called with a nil strategy.
	ErrNilStrategy = errors.New("nil strategy")

	// ErrDuplicateKind indicates a strategy is already registered for the kind.
	ErrDuplicateKind = errors.New("strategy already registered for kind")
)

// Strategy is the single capability a processing behavior must
// provide. Implementations are selected by Task.Kind and must be safe
// for concurrent use: the pool may run one strategy on many workers
// at once. The context is cancelled when the pool's grace period
// expires; cooperative strategies should return promptly.
type Strategy interface {
	Process(ctx context.Context, t *tasks.Task) (map[string]any, error)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(ctx context.Context, t *tasks.Task) (map[string]any, error)

// Process implements Strategy.
func (f StrategyFunc) Process(ctx context.Context, t *tasks.Task) (map[string]any, error) {
	return f(ctx, t)
}

// Registry maps task kinds to strategies. It replaces subclassing:
// concrete behaviors register under a string key and the pool looks
// them up per task.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register binds a strategy to a kind. Returns ErrDuplicateKind if the
// kind is already taken.
func (r *Registry) Register(kind string, s Strategy) error {
	if kind == "" {
		return ErrInvalidKind
	}
	if s == nil {
		return ErrNilStrategy
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[kind]; exists {
		return ErrDuplicateKind
	}
	r.strategies[kind] = s
	return nil
}

// Get returns the strategy for a kind.
func (r *Registry) Get(kind string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[kind]
	return s, ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.strategies))
	for k := range r.strategies {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
