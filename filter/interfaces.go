package filter

import "context"

// Record is one JSON object from a response payload.
type Record = map[string]any

// Filter defines the basic interface for record filters
type Filter interface {
	// Evaluate checks if a record matches the filter criteria
	Evaluate(rec Record) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// Evaluator evaluates filters against records
type Evaluator interface {
	// Evaluate returns the matching records in their original order
	Evaluate(ctx context.Context, filter CompiledFilter, records []Record) ([]Record, error)
}

// BatchEvaluator evaluates multiple filters concurrently
type BatchEvaluator interface {
	// EvaluateBatch evaluates multiple filters against records concurrently
	EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, records []Record) (map[string][]Record, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}
