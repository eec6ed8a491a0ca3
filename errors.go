package into

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoEngine indicates a clause was handed to a nil Inserter.
	ErrNoEngine = errors.New("into: engine not configured")
	// ErrNotClause indicates a script produced something other than a clause.
	ErrNotClause = errors.New("into: result is not a clause")

	// ErrUnknownRecordType is reported by engines that cannot create the
	// requested record type, including unresolved descriptors.
	ErrUnknownRecordType = errors.New("into: unknown record type")
	// ErrUnknownConfiguration is reported when an explicit configuration does
	// not exist.
	ErrUnknownConfiguration = errors.New("into: unknown configuration")
	// ErrAmbiguousConfiguration is reported when inference finds more than one
	// configuration for the record type.
	ErrAmbiguousConfiguration = errors.New("into: ambiguous configuration")
	// ErrRecordTypeMismatch indicates a created record cannot be held by the
	// clause type parameter.
	ErrRecordTypeMismatch = errors.New("into: record type mismatch")
)

// CreationError describes a failed insertion together with the clause that
// requested it.
type CreationError struct {
	RecordType    RecordType
	Configuration string
	InferStore    bool
	Err           error
}

// NewCreationError builds a CreationError for the given clause fields.
// Engines use it to report failures in the shape callers expect.
func NewCreationError(rt RecordType, configuration string, inferStore bool, err error) *CreationError {
	return &CreationError{
		RecordType:    rt,
		Configuration: configuration,
		InferStore:    inferStore,
		Err:           err,
	}
}

func newCreationError(clause Clause, err error) *CreationError {
	configuration, _ := clause.Configuration()
	return NewCreationError(clause.RecordType(), configuration, clause.InferStore(), err)
}

func (e *CreationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("into: create %s in %s: %v", e.RecordType, describeConfiguration(e.Configuration, e.InferStore), e.Err)
}

func (e *CreationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeConfiguration(configuration string, inferStore bool) string {
	if inferStore {
		return "inferred configuration"
	}
	if configuration == "" {
		return "default configuration"
	}
	return fmt.Sprintf("configuration %q", configuration)
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("into: %s evaluator %s: %v", e.Engine, describeExpression(e.Expr), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "into:") {
		return err
	}
	return fmt.Errorf("into: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Err:    err,
	}
}
