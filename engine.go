package into

import (
	"context"
	"fmt"
)

// Inserter is the engine entry point a clause is handed to. Implementations
// resolve the configuration (inferring it when inferStore is set), create
// the record and return it.
//
// Failures should be reported as *CreationError values wrapping one of
// ErrUnknownRecordType, ErrUnknownConfiguration or ErrAmbiguousConfiguration.
type Inserter interface {
	Insert(ctx context.Context, rt RecordType, configuration string, inferStore bool) (any, error)
}

// InserterFunc adapts a function to Inserter.
type InserterFunc func(ctx context.Context, rt RecordType, configuration string, inferStore bool) (any, error)

// Insert implements Inserter.
func (f InserterFunc) Insert(ctx context.Context, rt RecordType, configuration string, inferStore bool) (any, error) {
	if f == nil {
		return nil, ErrNoEngine
	}
	return f(ctx, rt, configuration, inferStore)
}

// Create hands clause to engine and returns the record as T. Engine errors
// are returned as-is.
func Create[T any](ctx context.Context, engine Inserter, clause Into[T]) (T, error) {
	var zero T
	record, err := CreateClause(ctx, engine, clause.Erase())
	if err != nil {
		return zero, err
	}
	typed, ok := record.(T)
	if !ok {
		return zero, newCreationError(clause.Erase(), fmt.Errorf("%w: engine returned %T", ErrRecordTypeMismatch, record))
	}
	return typed, nil
}

// CreateClause is the erased counterpart of Create.
func CreateClause(ctx context.Context, engine Inserter, clause Clause) (any, error) {
	if engine == nil {
		return nil, ErrNoEngine
	}
	if ctx == nil {
		ctx = context.Background()
	}
	configuration, _ := clause.Configuration()
	return engine.Insert(ctx, clause.RecordType(), configuration, clause.InferStore())
}
