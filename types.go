package into

import "time"

// Env carries per-evaluation inputs for a script. Vars are exposed as
// top-level identifiers and now is always bound.
type Env struct {
	Vars map[string]any
	Now  *time.Time
}

func (env Env) withDefaultNow() Env {
	if env.Now != nil {
		return env
	}
	now := time.Now()
	env.Now = &now
	return env
}

func (env Env) timestamp() time.Time {
	env = env.withDefaultNow()
	return *env.Now
}

func (env Env) withDefaultVars() Env {
	if env.Vars == nil {
		env.Vars = map[string]any{}
	}
	return env
}

func (env Env) withDefaults() Env {
	return env.withDefaultNow().withDefaultVars()
}

// Evaluator executes script expressions on behalf of a dynamic caller.
type Evaluator interface {
	Evaluate(env Env, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(env Env) (any, error)
}

// EvaluatorFactory builds an evaluator wired to cache and registry. The
// registry already carries the clause functions.
type EvaluatorFactory func(cache ProgramCache, registry *FunctionRegistry) Evaluator

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type Option func(*bridgeConfig)

type bridgeConfig struct {
	evaluator        Evaluator
	evaluatorFactory EvaluatorFactory
	programCache     ProgramCache
	functions        *FunctionRegistry
	types            *TypeRegistry
	logger           EvaluatorLogger
	engine           Inserter
}

func applyOptions(opts []Option) bridgeConfig {
	cfg := bridgeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithEvaluator configures a prebuilt evaluator. It must already expose the
// clause functions; prefer WithEvaluatorFactory.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *bridgeConfig) {
		cfg.evaluator = e
	}
}

// WithEvaluatorFactory selects the script runtime used by the bridge.
func WithEvaluatorFactory(factory EvaluatorFactory) Option {
	return func(cfg *bridgeConfig) {
		cfg.evaluatorFactory = factory
	}
}

// WithProgramCache registers a program cache on the bridge.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *bridgeConfig) {
		cfg.programCache = cache
	}
}

// WithTypeRegistry sets the names scripts use for record types. The registry
// is shared, not copied, so later registrations are visible to scripts.
func WithTypeRegistry(types *TypeRegistry) Option {
	return func(cfg *bridgeConfig) {
		cfg.types = types
	}
}

// WithEngine sets the engine that Bridge.Create hands clauses to.
func WithEngine(engine Inserter) Option {
	return func(cfg *bridgeConfig) {
		cfg.engine = engine
	}
}
