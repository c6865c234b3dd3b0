package agent

import (
	"fmt"
	"sync"
)

// Agent type names known to the default factory.
const (
	TypeTask    = "task"
	TypeMonitor = "monitor"
)

// Constructor builds an agent from its dependencies.
type Constructor func(deps Deps) (Agent, error)

// Factory creates agents by type name. Hosts register additional
// types next to the built-in ones and assemble agents from
// configuration instead of hard-wired constructors.
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewFactory creates a factory with the built-in agent types
// registered.
func NewFactory() *Factory {
	f := &Factory{
		constructors: make(map[string]Constructor),
	}
	f.Register(TypeTask, func(deps Deps) (Agent, error) {
		return NewTaskAgent(deps)
	})
	f.Register(TypeMonitor, func(deps Deps) (Agent, error) {
		return NewMonitorAgent(deps)
	})
	return f
}

// Register binds a constructor to a type name.
func (f *Factory) Register(agentType string, c Constructor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.constructors[agentType]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAgentType, agentType)
	}
	f.constructors[agentType] = c
	return nil
}

// New builds an agent of the given type.
func (f *Factory) New(agentType string, deps Deps) (Agent, error) {
	f.mu.RLock()
	c, ok := f.constructors[agentType]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgentType, agentType)
	}
	return c(deps)
}

// Types returns the registered type names.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.constructors))
	for t := range f.constructors {
		types = append(types, t)
	}
	return types
}
