package into

import (
	"reflect"
	"strings"
)

// RecordType identifies the concrete record kind a clause creates. It is a
// comparable value: descriptors for the same Go type are equal regardless of
// which clause instantiation carries them.
//
// A RecordType may be unresolved when a dynamic caller names a type that was
// never bound to a Go type. Unresolved descriptors are still valid clause
// inputs; the engine reports them when it attempts resolution.
type RecordType struct {
	typ  reflect.Type
	name string
}

// TypeOf returns the descriptor for the compile-time type T.
func TypeOf[T any]() RecordType {
	return recordTypeFor(reflect.TypeFor[T]())
}

// RecordTypeOf derives a descriptor from a runtime token. The token may be a
// RecordType, a reflect.Type, or any value whose dynamic type is the record
// type. A nil token yields the zero descriptor.
func RecordTypeOf(token any) RecordType {
	switch typed := token.(type) {
	case nil:
		return RecordType{}
	case RecordType:
		return typed
	case *RecordType:
		if typed == nil {
			return RecordType{}
		}
		return *typed
	case reflect.Type:
		return recordTypeFor(typed)
	default:
		return recordTypeFor(reflect.TypeOf(token))
	}
}

// NamedRecordType returns an unresolved descriptor carrying only name.
func NamedRecordType(name string) RecordType {
	return RecordType{name: strings.TrimSpace(name)}
}

func recordTypeFor(t reflect.Type) RecordType {
	if t == nil {
		return RecordType{}
	}
	return RecordType{typ: t, name: t.String()}
}

// Name returns the descriptor's display name.
func (r RecordType) Name() string {
	return r.name
}

// Type returns the bound Go type, or nil when the descriptor is unresolved.
func (r RecordType) Type() reflect.Type {
	return r.typ
}

// Resolved reports whether the descriptor is bound to a Go type.
func (r RecordType) Resolved() bool {
	return r.typ != nil
}

// IsZero reports whether the descriptor names nothing at all.
func (r RecordType) IsZero() bool {
	return r.typ == nil && r.name == ""
}

// Equal reports descriptor identity.
func (r RecordType) Equal(other RecordType) bool {
	return r.typ == other.typ && r.name == other.name
}

func (r RecordType) String() string {
	if r.IsZero() {
		return "<none>"
	}
	if !r.Resolved() {
		return "?" + r.name
	}
	return r.name
}

// AssignableTo reports whether records of this type can be held by t. The
// empty interface accepts every descriptor, resolved or not.
func (r RecordType) AssignableTo(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		return true
	}
	if r.typ == nil {
		return false
	}
	return r.typ.AssignableTo(t)
}

// hashKey distinguishes resolved from unresolved descriptors that share a
// display name.
func (r RecordType) hashKey() string {
	if r.typ == nil {
		return "name:" + r.name
	}
	return "type:" + r.typ.PkgPath() + ":" + r.name
}
