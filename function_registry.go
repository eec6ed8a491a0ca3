package into

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	// ClauseFunctionName is the script function that builds clauses:
	// into(type) or into(type, configuration).
	ClauseFunctionName = "into"
	// SameClauseFunctionName is the script function comparing two clauses.
	SameClauseFunctionName = "sameClause"
)

// Function represents a callable registered against evaluators.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by name. Names keep their
// registered spelling and are matched case-insensitively.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]namedFunction
}

type namedFunction struct {
	name string
	fn   Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]namedFunction),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("into: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("into: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]namedFunction)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("into: function %q already registered", name)
	}
	r.functions[key] = namedFunction{name: name, fn: fn}
	return nil
}

// RegisterClauseFunctions installs into() and sameClause() backed by types.
func (r *FunctionRegistry) RegisterClauseFunctions(types *TypeRegistry) error {
	if err := r.Register(ClauseFunctionName, clauseFunction(types)); err != nil {
		return err
	}
	return r.Register(SameClauseFunctionName, sameClauseFunction)
}

// Has reports whether name is registered.
func (r *FunctionRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	_, ok := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	return ok
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]namedFunction, len(r.functions)),
	}
	for key, entry := range r.functions {
		clone.functions[key] = entry
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("into: function registry is nil")
	}
	r.mu.RLock()
	entry := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if entry.fn == nil {
		return nil, fmt.Errorf("into: function %q not registered", name)
	}
	return entry.fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for _, entry := range r.functions {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry configures a bridge to use registry.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *bridgeConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the bridge.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *bridgeConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

func clauseFunction(types *TypeRegistry) Function {
	return func(args ...any) (any, error) {
		switch len(args) {
		case 1:
			return types.MakeClause(args[0], nil), nil
		case 2:
			return types.MakeClause(args[0], args[1]), nil
		default:
			return nil, fmt.Errorf("into: %s expects 1 or 2 arguments, got %d", ClauseFunctionName, len(args))
		}
	}
}

func sameClauseFunction(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("into: %s expects 2 arguments, got %d", SameClauseFunctionName, len(args))
	}
	left, ok := AsClause(args[0])
	if !ok {
		return false, nil
	}
	return left.Equal(args[1]), nil
}
