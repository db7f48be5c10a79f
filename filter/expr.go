package filter

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache[CompiledFilter]
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// Record fields are unknown until run time
	compileEnv := maps.Clone(c.helperFuncs)
	addRecordHelpers(compileEnv, Record{})

	program, err := expr.Compile(expression,
		expr.Env(compileEnv),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		helpers:    c.helperFuncs,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate reports whether rec matches. A record the expression cannot be
// evaluated against (wrong field types, for instance) does not match.
func (f *exprFilter) Evaluate(rec Record) bool {
	result, err := expr.Run(f.program, runtimeEnvironment(rec, f.helpers))
	if err != nil {
		return false
	}
	return result.(bool)
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// createHelperFunctions creates the static helper functions used during compilation
func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 16)

	// String helpers, case-insensitive and tolerant of non-string fields
	funcs["contains"] = func(v any, substr string) bool {
		return strings.Contains(strings.ToLower(stringify(v)), strings.ToLower(substr))
	}
	funcs["startsWith"] = func(v any, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(stringify(v)), strings.ToLower(prefix))
	}
	funcs["endsWith"] = func(v any, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(stringify(v)), strings.ToLower(suffix))
	}
	funcs["lower"] = func(v any) string { return strings.ToLower(stringify(v)) }
	funcs["upper"] = func(v any) string { return strings.ToUpper(stringify(v)) }

	// Timestamps in payloads are epoch milliseconds
	funcs["daysSince"] = func(v any) int {
		ms, ok := v.(float64)
		if !ok {
			return -1
		}
		return int(time.Since(time.UnixMilli(int64(ms))).Hours() / 24)
	}
	funcs["now"] = time.Now

	return funcs
}

// addRecordHelpers installs the helpers bound to one record.
func addRecordHelpers(env map[string]any, rec Record) {
	env["Record"] = rec
	env["hasField"] = func(path string) bool {
		_, ok := lookup(rec, path)
		return ok
	}
	env["field"] = func(path string) any {
		v, _ := lookup(rec, path)
		return v
	}
}

// runtimeEnvironment exposes the record's top-level keys as variables. Helpers
// are added last so a field named like a helper cannot shadow it; such fields
// stay reachable through field() or Record.
func runtimeEnvironment(rec Record, helpers map[string]any) map[string]any {
	env := make(map[string]any, len(rec)+len(helpers)+3)
	maps.Copy(env, rec)
	maps.Copy(env, helpers)
	addRecordHelpers(env, rec)
	return env
}

// lookup resolves a dotted path such as "state.wan.0.ip" through nested
// objects and arrays.
func lookup(rec Record, path string) (any, bool) {
	var cur any = rec
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}
