package into

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// TypeRegistry maps the names a dynamic runtime uses for record types onto
// their descriptors. Lookups are case-insensitive.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]namedType
}

type namedType struct {
	name       string
	recordType RecordType
}

// NewTypeRegistry constructs an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types: make(map[string]namedType),
	}
}

// RegisterType binds name to the descriptor of T.
func RegisterType[T any](r *TypeRegistry, name string) error {
	return r.Register(name, TypeOf[T]())
}

// Register stores rt under name guarding against duplicates.
func (r *TypeRegistry) Register(name string, rt RecordType) error {
	if r == nil {
		return fmt.Errorf("into: type registry is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("into: record type name must not be empty")
	}
	if !rt.Resolved() {
		return fmt.Errorf("into: record type %q is not bound to a Go type", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.types == nil {
		r.types = make(map[string]namedType)
	}
	key := strings.ToLower(name)
	if _, exists := r.types[key]; exists {
		return fmt.Errorf("into: record type %q already registered", name)
	}
	r.types[key] = namedType{name: name, recordType: rt}
	return nil
}

// Lookup returns the descriptor registered for name.
func (r *TypeRegistry) Lookup(name string) (RecordType, bool) {
	if r == nil {
		return RecordType{}, false
	}
	r.mu.RLock()
	entry, ok := r.types[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	return entry.recordType, ok
}

// Names returns the registered names sorted alphabetically.
func (r *TypeRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for _, entry := range r.types {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy of the registry.
func (r *TypeRegistry) Clone() *TypeRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &TypeRegistry{
		types: make(map[string]namedType, len(r.types)),
	}
	for key, entry := range r.types {
		clone.types[key] = entry
	}
	return clone
}

// Resolve turns a runtime token into a descriptor. Strings are looked up by
// name and fall back to an unresolved descriptor; other tokens go through
// RecordTypeOf.
func (r *TypeRegistry) Resolve(token any) RecordType {
	name, ok := token.(string)
	if !ok {
		return RecordTypeOf(token)
	}
	if rt, found := r.Lookup(name); found {
		return rt
	}
	return NamedRecordType(name)
}

// MakeClause builds an erased clause from dynamic arguments. configuration
// may be nil (infer), a string, or a *string; other values are formatted with
// fmt.Sprint.
func (r *TypeRegistry) MakeClause(token any, configuration any) Clause {
	rt := r.Resolve(token)
	switch typed := configuration.(type) {
	case nil:
		return MakeClause(rt, nil)
	case string:
		return MakeClause(rt, &typed)
	case *string:
		return MakeClause(rt, typed)
	default:
		name := fmt.Sprint(typed)
		return MakeClause(rt, &name)
	}
}
