package filter

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of worker goroutines
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if workers > 0 {
			e.workerCount = workers
		}
	}
}

// WithBatchSize sets the batch size for chunked processing
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator implements both Evaluator and BatchEvaluator interfaces
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
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

	return e
}

// Evaluate evaluates a single filter against all records. Matches keep the
// order of the input.
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, records []Record) ([]Record, error) {
	if len(records) == 0 {
		return []Record{}, nil
	}

	// Small payloads are not worth the goroutines
	if len(records) < e.batchSize {
		return evaluateSequential(filter, records), nil
	}

	return e.evaluateConcurrent(ctx, filter, records)
}

// EvaluateBatch evaluates multiple filters against records concurrently.
// Every filter gets an entry, empty when nothing matched.
func (e *ConcurrentEvaluator) EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, records []Record) (map[string][]Record, error) {
	results := make(map[string][]Record, len(filters))
	if len(records) == 0 {
		for name := range filters {
			results[name] = []Record{}
		}
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)

	for name, filter := range filters {
		g.Go(func() error {
			matches, err := e.Evaluate(gctx, filter, records)
			if err != nil {
				return err
			}
			mu.Lock()
			results[name] = matches
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func evaluateSequential(filter CompiledFilter, records []Record) []Record {
	matches := make([]Record, 0, len(records)/4)
	for _, rec := range records {
		if filter.Evaluate(rec) {
			matches = append(matches, rec)
		}
	}
	return matches
}

// evaluateConcurrent splits records into chunks and merges the chunk results in order.
func (e *ConcurrentEvaluator) evaluateConcurrent(ctx context.Context, filter CompiledFilter, records []Record) ([]Record, error) {
	chunkSize := max(len(records)/e.workerCount, e.batchSize)
	chunks := (len(records) + chunkSize - 1) / chunkSize
	results := make([][]Record, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)

	for idx := range chunks {
		start := idx * chunkSize
		end := min(start+chunkSize, len(records))

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[idx] = evaluateSequential(filter, records[start:end])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := 0
	for _, chunk := range results {
		total += len(chunk)
	}
	matches := make([]Record, 0, total)
	for _, chunk := range results {
		matches = append(matches, chunk...)
	}
	return matches, nil
}
