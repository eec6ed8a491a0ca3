package into

import (
	"fmt"
	"reflect"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

var (
	// ClauseCELType is the opaque CEL type of clause values.
	ClauseCELType = celgo.OpaqueType("into.Clause")
	// RecordTypeCELType is the opaque CEL type of record type tokens passed
	// in through Env vars.
	RecordTypeCELType = celgo.OpaqueType("into.RecordType")
)

var (
	clauseReflectType        = reflect.TypeOf(Clause{})
	clausePtrReflectType     = reflect.TypeOf(&Clause{})
	recordTypeReflectType    = reflect.TypeOf(RecordType{})
	recordTypePtrReflectType = reflect.TypeOf(&RecordType{})
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. When the registry
// carries the clause functions they are declared with typed overloads:
// into(string), into(string, string), into(string, null), the same three
// taking a record type token in place of the name, and
// sameClause(clause, clause). Every registry function is also reachable via
// call(name, [args]).
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// CELEvaluatorFactory is the EvaluatorFactory for cel-go.
func CELEvaluatorFactory(cache ProgramCache, registry *FunctionRegistry) Evaluator {
	return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry))
}

func (e *celEvaluator) Evaluate(env Env, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	env = env.withDefaults()
	program, err := e.loadOrCompile(expression, env.Vars)
	if err != nil {
		return nil, err
	}
	return e.run(program, env)
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) run(program *celProgram, env Env) (any, error) {
	out, _, err := program.program.Eval(e.activation(env))
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (e *celEvaluator) loadOrCompile(expression string, vars map[string]any) (*celProgram, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(vars)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(vars map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string",
				[]*celgo.Type{celgo.StringType},
				celgo.DynType,
				celgo.UnaryBinding(func(name ref.Val) ref.Val {
					return e.callRegistry(name, nil)
				}),
			),
			celgo.Overload("call_string_list",
				[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
				celgo.DynType,
				celgo.BinaryBinding(e.callRegistry),
			),
		))
		if e.registry.Has(ClauseFunctionName) {
			opts = append(opts, e.clauseFunction())
		}
		if e.registry.Has(SameClauseFunctionName) {
			opts = append(opts, e.sameClauseFunction())
		}
	}
	for key := range vars {
		if key == "now" {
			continue
		}
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) clauseFunction() celgo.EnvOption {
	return celgo.Function(ClauseFunctionName,
		celgo.Overload("into_string",
			[]*celgo.Type{celgo.StringType},
			ClauseCELType,
			celgo.UnaryBinding(func(name ref.Val) ref.Val {
				return e.callClause(name)
			}),
		),
		celgo.Overload("into_string_string",
			[]*celgo.Type{celgo.StringType, celgo.StringType},
			ClauseCELType,
			celgo.BinaryBinding(func(name, configuration ref.Val) ref.Val {
				return e.callClause(name, configuration)
			}),
		),
		celgo.Overload("into_string_null",
			[]*celgo.Type{celgo.StringType, celgo.NullType},
			ClauseCELType,
			celgo.BinaryBinding(func(name, configuration ref.Val) ref.Val {
				return e.callClause(name, configuration)
			}),
		),
		celgo.Overload("into_type",
			[]*celgo.Type{RecordTypeCELType},
			ClauseCELType,
			celgo.UnaryBinding(func(rt ref.Val) ref.Val {
				return e.callClause(rt)
			}),
		),
		celgo.Overload("into_type_string",
			[]*celgo.Type{RecordTypeCELType, celgo.StringType},
			ClauseCELType,
			celgo.BinaryBinding(func(rt, configuration ref.Val) ref.Val {
				return e.callClause(rt, configuration)
			}),
		),
		celgo.Overload("into_type_null",
			[]*celgo.Type{RecordTypeCELType, celgo.NullType},
			ClauseCELType,
			celgo.BinaryBinding(func(rt, configuration ref.Val) ref.Val {
				return e.callClause(rt, configuration)
			}),
		),
	)
}

func (e *celEvaluator) sameClauseFunction() celgo.EnvOption {
	return celgo.Function(SameClauseFunctionName,
		celgo.Overload("sameClause_clause_clause",
			[]*celgo.Type{ClauseCELType, ClauseCELType},
			celgo.BoolType,
			celgo.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
				return lhs.Equal(rhs)
			}),
		),
	)
}

func (e *celEvaluator) callClause(args ...ref.Val) ref.Val {
	result, err := e.registry.Call(ClauseFunctionName, celArgs(args)...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	return celValue(result)
}

func (e *celEvaluator) callRegistry(name ref.Val, list ref.Val) ref.Val {
	fn, ok := name.Value().(string)
	if !ok {
		return types.NewErr("into: call name must be string")
	}
	var values []ref.Val
	if list != nil {
		lister, ok := list.(traits.Lister)
		if !ok {
			return types.NewErr("into: call arguments must be a list")
		}
		for it := lister.Iterator(); it.HasNext() == types.True; {
			values = append(values, it.Next())
		}
	}
	args := celArgs(values)
	result, err := e.registry.Call(fn, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	return celValue(result)
}

func (e *celEvaluator) activation(env Env) map[string]any {
	activation := make(map[string]any, len(env.Vars)+1)
	for key, value := range env.Vars {
		activation[key] = celValue(value)
	}
	activation["now"] = env.timestamp()
	return activation
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(env Env) (any, error) {
	if r.evaluator == nil {
		return nil, fmt.Errorf("cel compiled rule missing evaluator")
	}
	env = env.withDefaults()
	program, err := r.evaluator.loadOrCompile(r.expression, env.Vars)
	if err != nil {
		return nil, err
	}
	return r.evaluator.run(program, env)
}

func celArgs(values []ref.Val) []any {
	args := make([]any, 0, len(values))
	for _, value := range values {
		if value == nil || value.Type() == types.NullType {
			args = append(args, nil)
			continue
		}
		args = append(args, value.Value())
	}
	return args
}

func celValue(value any) ref.Val {
	switch typed := value.(type) {
	case nil:
		return types.NullValue
	case ref.Val:
		return typed
	case Clause:
		return celClause{clause: typed}
	case *Clause:
		if typed == nil {
			return types.NullValue
		}
		return celClause{clause: *typed}
	case RecordType:
		return celRecordType{recordType: typed}
	case *RecordType:
		if typed == nil {
			return types.NullValue
		}
		return celRecordType{recordType: *typed}
	case reflect.Type:
		return celRecordType{recordType: RecordTypeOf(typed)}
	default:
		return types.DefaultTypeAdapter.NativeToValue(value)
	}
}

// celClause exposes a Clause to CEL. Its equality is Clause.Equal.
type celClause struct {
	clause Clause
}

func (v celClause) Clause() Clause {
	return v.clause
}

func (v celClause) ConvertToNative(typeDesc reflect.Type) (any, error) {
	switch typeDesc {
	case clauseReflectType:
		return v.clause, nil
	case clausePtrReflectType:
		clause := v.clause
		return &clause, nil
	}
	if typeDesc.Kind() == reflect.Interface && clauseReflectType.Implements(typeDesc) {
		return v.clause, nil
	}
	return nil, fmt.Errorf("into: cannot convert clause to %v", typeDesc)
}

func (v celClause) ConvertToType(typeVal ref.Type) ref.Val {
	switch typeVal.TypeName() {
	case ClauseCELType.TypeName():
		return v
	case types.TypeType.TypeName():
		return ClauseCELType
	}
	return types.NewErr("into: type conversion error from %s to %s", ClauseCELType.TypeName(), typeVal.TypeName())
}

func (v celClause) Equal(other ref.Val) ref.Val {
	return types.Bool(v.clause.Equal(other.Value()))
}

func (v celClause) Type() ref.Type {
	return ClauseCELType
}

func (v celClause) Value() any {
	return v.clause
}

// celRecordType carries a record type token through CEL unchanged.
type celRecordType struct {
	recordType RecordType
}

func (v celRecordType) ConvertToNative(typeDesc reflect.Type) (any, error) {
	switch typeDesc {
	case recordTypeReflectType:
		return v.recordType, nil
	case recordTypePtrReflectType:
		rt := v.recordType
		return &rt, nil
	}
	if typeDesc.Kind() == reflect.Interface && recordTypeReflectType.Implements(typeDesc) {
		return v.recordType, nil
	}
	return nil, fmt.Errorf("into: cannot convert record type to %v", typeDesc)
}

func (v celRecordType) ConvertToType(typeVal ref.Type) ref.Val {
	switch typeVal.TypeName() {
	case RecordTypeCELType.TypeName():
		return v
	case types.StringType.TypeName():
		return types.String(v.recordType.String())
	case types.TypeType.TypeName():
		return RecordTypeCELType
	}
	return types.NewErr("into: type conversion error from %s to %s", RecordTypeCELType.TypeName(), typeVal.TypeName())
}

func (v celRecordType) Equal(other ref.Val) ref.Val {
	o, ok := other.(celRecordType)
	return types.Bool(ok && v.recordType.Equal(o.recordType))
}

func (v celRecordType) Type() ref.Type {
	return RecordTypeCELType
}

func (v celRecordType) Value() any {
	return v.recordType
}
