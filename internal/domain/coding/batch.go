package coding

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DefaultBatchWorkers bounds RunBatch when the caller passes zero.
const DefaultBatchWorkers = 4

// RunBatch codes every input concurrently with at most workers runs in
// flight. Results are returned in input order. Inputs that never start
// because ctx was cancelled come back as processing errors.
func (e *Engine) RunBatch(ctx context.Context, inputs []EncounterInput, workers int) []*DecisionTreeResult {
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}
	results := make([]*DecisionTreeResult, len(inputs))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, in := range inputs {
		wg.Add(1)
		go func(idx int, in EncounterInput) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				r := &run{id: uuid.New(), in: in}
				results[idx] = e.processingError(r, fmt.Errorf("batch cancelled: %w", ctx.Err()))
				return
			}
			defer func() { <-sem }()

			results[idx] = e.Run(ctx, in)
		}(i, in)
	}

	wg.Wait()
	return results
}
