package into

import "reflect"

// Clause is the type-erased insertion clause handed across the dynamic
// boundary. It owns exactly one AnyInto and delegates equality and hashing to
// it. Clause values are comparable and can key Go maps directly.
type Clause struct {
	into AnyInto
}

// Erase converts a typed clause into its erased form without losing any
// field.
func Erase[T any](clause Into[T]) Clause {
	return Clause{into: AnyInto{
		recordType:    clause.recordType,
		configuration: clause.configuration,
		inferStore:    clause.inferStore,
	}}
}

// Erase is the method form of Erase.
func (i Into[T]) Erase() Clause {
	return Erase(i)
}

// MakeClause is the factory used by dynamic callers. A nil configuration
// requests inference; any non-nil value, including "", is explicit.
func MakeClause(rt RecordType, configuration *string) Clause {
	if configuration == nil {
		return Erase(ForType[any](rt))
	}
	return Erase(ForTypeIn[any](rt, *configuration))
}

// AsClause extracts a Clause from a value produced by a dynamic runtime.
func AsClause(value any) (Clause, bool) {
	switch typed := value.(type) {
	case Clause:
		return typed, true
	case *Clause:
		if typed == nil {
			return Clause{}, false
		}
		return *typed, true
	case interface{ Clause() Clause }:
		return typed.Clause(), true
	default:
		return Clause{}, false
	}
}

// Equal reports whether other is a Clause (or *Clause) wrapping an equal
// clause. Values of any other kind are never equal.
func (c Clause) Equal(other any) bool {
	o, ok := AsClause(other)
	if !ok {
		return false
	}
	return c.into.Equal(o.into)
}

// Hash is consistent with Equal.
func (c Clause) Hash() uint64 {
	return c.into.Hash()
}

// Unwrap returns the embedded clause.
func (c Clause) Unwrap() AnyInto {
	return c.into
}

// RecordType returns the descriptor carried by the clause.
func (c Clause) RecordType() RecordType {
	return c.into.RecordType()
}

// Configuration returns the configuration name and whether it was explicit.
func (c Clause) Configuration() (string, bool) {
	return c.into.Configuration()
}

// InferStore reports whether the engine must infer the configuration.
func (c Clause) InferStore() bool {
	return c.into.InferStore()
}

func (c Clause) String() string {
	return c.into.String()
}

// Bind recovers a typed clause from c. It reports false when the carried
// descriptor cannot be held by T.
func Bind[T any](c Clause) (Into[T], bool) {
	if !c.into.recordType.AssignableTo(reflect.TypeFor[T]()) {
		return Into[T]{}, false
	}
	return Into[T]{
		recordType:    c.into.recordType,
		configuration: c.into.configuration,
		inferStore:    c.into.inferStore,
	}, true
}
