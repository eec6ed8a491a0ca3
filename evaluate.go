package into

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("into: evaluator not configured")

// Bridge lets script callers build clauses by name and hands the resulting
// clauses to an engine. A Bridge is safe for concurrent use when its
// evaluator, engine and logger are.
type Bridge struct {
	evaluator Evaluator
	functions *FunctionRegistry
	types     *TypeRegistry
	logger    EvaluatorLogger
	engine    Inserter
}

// NewBridge assembles a bridge. Without further options it evaluates expr
// scripts against an empty type registry; unknown type names still produce
// clauses and are rejected by the engine.
//
// The clause functions are added to the configured function registry unless
// it already defines functions with the same names.
func NewBridge(opts ...Option) *Bridge {
	cfg := applyOptions(opts)
	if cfg.types == nil {
		cfg.types = NewTypeRegistry()
	}
	functions := cfg.functions.Clone()
	if functions == nil {
		functions = NewFunctionRegistry()
	}
	if !functions.Has(ClauseFunctionName) && !functions.Has(SameClauseFunctionName) {
		_ = functions.RegisterClauseFunctions(cfg.types)
	}

	evaluator := cfg.evaluator
	if evaluator == nil {
		factory := cfg.evaluatorFactory
		if factory == nil {
			factory = ExprEvaluatorFactory
		}
		evaluator = factory(cfg.programCache, functions)
	}

	logger := cfg.logger
	if logger == nil {
		logger = noopEvaluatorLogger{}
	}
	return &Bridge{
		evaluator: evaluator,
		functions: functions,
		types:     cfg.types,
		logger:    logger,
		engine:    cfg.engine,
	}
}

// Types returns the registry scripts resolve record type names against.
func (b *Bridge) Types() *TypeRegistry {
	return b.types
}

// Functions returns a copy of the functions exposed to scripts.
func (b *Bridge) Functions() *FunctionRegistry {
	return b.functions.Clone()
}

// Evaluate runs expr with a default Env.
func (b *Bridge) Evaluate(expr string) (any, error) {
	return b.EvaluateWith(Env{}, expr)
}

// EvaluateWith runs expr against env and logs the attempt.
func (b *Bridge) EvaluateWith(env Env, expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	if b.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	env = env.withDefaults()
	engine := evaluatorEngineName(b.evaluator)
	start := time.Now()
	value, evalErr := b.evaluator.Evaluate(env, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, evalErr)
	event := EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Duration: duration,
		Err:      evalErr,
	}
	if evalErr == nil {
		event.Result = fmt.Sprint(value)
	}
	b.logger.LogEvaluation(event)
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

// Clause evaluates expr and returns the clause it produced.
func (b *Bridge) Clause(expr string) (Clause, error) {
	return b.ClauseWith(Env{}, expr)
}

// ClauseWith evaluates expr against env and returns the clause it produced.
// Any other result fails with ErrNotClause.
func (b *Bridge) ClauseWith(env Env, expr string) (Clause, error) {
	value, err := b.EvaluateWith(env, expr)
	if err != nil {
		return Clause{}, err
	}
	clause, ok := AsClause(value)
	if !ok {
		return Clause{}, wrapEvaluationError(evaluatorEngineName(b.evaluator), expr, fmt.Errorf("%w: got %T", ErrNotClause, value))
	}
	return clause, nil
}

// Create evaluates expr and hands the resulting clause to the engine. Engine
// errors are returned unmodified.
func (b *Bridge) Create(ctx context.Context, expr string) (any, error) {
	clause, err := b.Clause(expr)
	if err != nil {
		return nil, err
	}
	return CreateClause(ctx, b.engine, clause)
}

// CreateFrom evaluates expr, binds the clause to T and creates the record.
func CreateFrom[T any](ctx context.Context, b *Bridge, expr string) (T, error) {
	var zero T
	clause, err := b.Clause(expr)
	if err != nil {
		return zero, err
	}
	typed, ok := Bind[T](clause)
	if !ok {
		return zero, newCreationError(clause, fmt.Errorf("%w: %s is not assignable to %s", ErrRecordTypeMismatch, clause.RecordType(), TypeOf[T]()))
	}
	return Create(ctx, b.engine, typed)
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch e.(type) {
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if jsEvaluatorAvailable() && fmt.Sprintf("%T", e) == "*into.jsEvaluator" {
			return "js"
		}
		return "custom"
	}
}
