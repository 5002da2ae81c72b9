package filter

import (
	"context"

	"github.com/s0up4200/lolzmarket/lolz"
)

// Filter decides whether a market item matches
type Filter interface {
	// Evaluate checks if an item matches the filter criteria
	Evaluate(item lolz.Item) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string

	// Match is Evaluate with the evaluation error exposed
	Match(item lolz.Item) (bool, error)
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// Evaluator evaluates filters against items
type Evaluator interface {
	// Evaluate returns the items matching filter, in input order
	Evaluate(ctx context.Context, filter CompiledFilter, items []lolz.Item) ([]lolz.Item, error)
}

// BatchEvaluator evaluates multiple filters concurrently
type BatchEvaluator interface {
	// EvaluateBatch evaluates multiple filters against items concurrently
	EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, items []lolz.Item) (map[string][]lolz.Item, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}

// BatchResult represents the result of evaluating one named filter
type BatchResult struct {
	FilterName string
	Matches    []lolz.Item
	Error      error
}

// WorkerPool defines the interface for concurrent work execution
type WorkerPool interface {
	// Submit queues work, blocking while the queue is full
	Submit(ctx context.Context, work func()) error

	// Stop gracefully stops the worker pool
	Stop(ctx context.Context) error
}
