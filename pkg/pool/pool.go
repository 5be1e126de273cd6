package pool

import (
	"context"
	"sync"
)

// WorkerFunc defines the function signature for a worker that processes an item and may return an error.
type WorkerFunc[T any] func(ctx context.Context, item T) error

// MapFunc processes an item and produces a value.
type MapFunc[T, R any] func(ctx context.Context, item T) (R, error)

// Result is the outcome for the item at Index.
type Result[R any] struct {
	Index   int
	Value   R
	Err     error
	Skipped bool // never started because ctx was done
}

// Map runs fn over items with numWorkers goroutines and returns one Result per
// item, in input order. Items never started because ctx was cancelled are
// marked Skipped and carry ctx's error. onDone, if set, is called after each processed item.
func Map[T, R any](ctx context.Context, items []T, numWorkers int, fn MapFunc[T, R], onDone func()) []Result[R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	results := make([]Result[R], len(items))
	started := make([]bool, len(items))

	var wg sync.WaitGroup
	taskChan := make(chan int, numWorkers)

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range taskChan {
				if ctx.Err() != nil {
					continue
				}
				started[idx] = true
				v, err := fn(ctx, items[idx])
				results[idx] = Result[R]{Index: idx, Value: v, Err: err}
				if onDone != nil {
					onDone()
				}
			}
		}()
	}

OUT:
	for idx := range items {
		select {
		case taskChan <- idx:
		case <-ctx.Done():
			// Stop feeding tasks if the context is cancelled
			break OUT
		}
	}
	close(taskChan)
	wg.Wait()

	for idx := range results {
		if !started[idx] {
			results[idx] = Result[R]{Index: idx, Err: ctx.Err(), Skipped: true}
		}
	}
	return results
}

// Run executes workerFunc over items concurrently and returns the errors of
// the items that failed. Items skipped because of cancellation are not reported.
func Run[T any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T]) []error {
	results := Map(ctx, items, numWorkers, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, workerFunc(ctx, item)
	}, nil)

	var allErrors []error
	for _, r := range results {
		if r.Err != nil && !r.Skipped {
			allErrors = append(allErrors, r.Err)
		}
	}
	return allErrors
}
