package filter

import (
	"context"
	"runtime"
	"sync"

	"github.com/s0up4200/lolzmarket/lolz"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of worker goroutines
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		e.workerCount = workers
	}
}

// WithBatchSize sets the chunk size below which evaluation stays sequential
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator implements both Evaluator and BatchEvaluator
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
	pool        WorkerPool
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}

	for _, opt := range opts {
		opt(e)
	}
	e.workerCount = max(e.workerCount, 1)

	e.pool = NewWorkerPool(e.workerCount)

	return e
}

// Evaluate returns the items matching filter, in input order
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, items []lolz.Item) ([]lolz.Item, error) {
	if len(items) == 0 {
		return []lolz.Item{}, nil
	}

	if len(items) < e.batchSize {
		return evaluateSequential(filter, items), nil
	}

	return e.evaluateConcurrent(ctx, filter, items)
}

// EvaluateBatch evaluates multiple filters against items. Filters run on
// their own goroutines; chunks of large inputs go through the pool.
func (e *ConcurrentEvaluator) EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, items []lolz.Item) (map[string][]lolz.Item, error) {
	results := make(map[string][]lolz.Item, len(filters))
	if len(filters) == 0 || len(items) == 0 {
		return results, nil
	}

	resultChan := make(chan BatchResult, len(filters))

	var wg sync.WaitGroup
	for name, filter := range filters {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				resultChan <- BatchResult{FilterName: name, Error: err}
				return
			}

			matches, err := e.Evaluate(ctx, filter, items)
			resultChan <- BatchResult{
				FilterName: name,
				Matches:    matches,
				Error:      err,
			}
		}()
	}

	wg.Wait()
	close(resultChan)

	var firstErr error
	for result := range resultChan {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = result.Error
			}
			continue
		}
		results[result.FilterName] = result.Matches
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return results, firstErr
	}
	return results, nil
}

func evaluateSequential(filter CompiledFilter, items []lolz.Item) []lolz.Item {
	matches := make([]lolz.Item, 0, len(items)/4)
	for _, item := range items {
		if filter.Evaluate(item) {
			matches = append(matches, item)
		}
	}
	return matches
}

// evaluateConcurrent splits items into chunks and evaluates them on the pool
func (e *ConcurrentEvaluator) evaluateConcurrent(ctx context.Context, filter CompiledFilter, items []lolz.Item) ([]lolz.Item, error) {
	chunkSize := max(len(items)/e.workerCount, e.batchSize)
	chunkCount := (len(items) + chunkSize - 1) / chunkSize

	// Each chunk writes only its own slot.
	chunks := make([][]lolz.Item, chunkCount)
	var wg sync.WaitGroup

	for index := range chunkCount {
		start := index * chunkSize
		end := min(start+chunkSize, len(items))
		chunk := items[start:end]

		wg.Add(1)
		err := e.pool.Submit(ctx, func() {
			defer wg.Done()

			if ctx.Err() != nil {
				return
			}
			chunks[index] = evaluateSequential(filter, chunk)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	matches := make([]lolz.Item, 0, total)
	for _, chunk := range chunks {
		matches = append(matches, chunk...)
	}
	return matches, nil
}

// Stop gracefully stops the evaluator's worker pool
func (e *ConcurrentEvaluator) Stop(ctx context.Context) error {
	return e.pool.Stop(ctx)
}
