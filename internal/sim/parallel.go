package sim

import (
	"context"
	"fmt"
	"sync"
)

// Job is one independent run. Build must return a simulator with its own
// world and controller.
type Job struct {
	Name   string
	Build  func() (*Simulator, error)
	Config Config
}

// Batch runs jobs concurrently.
type Batch struct {
	jobs []Job
}

func NewBatch(jobs ...Job) *Batch {
	return &Batch{jobs: jobs}
}

func (b *Batch) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, len(b.jobs))
	errs := make([]error, len(b.jobs))

	var wg sync.WaitGroup
	for i := range b.jobs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			job := b.jobs[idx]
			sim, err := job.Build()
			if err != nil {
				errs[idx] = fmt.Errorf("%s: %w", job.Name, err)
				return
			}
			results[idx], errs[idx] = sim.Run(ctx, job.Config)
			if errs[idx] != nil {
				errs[idx] = fmt.Errorf("%s: %w", job.Name, errs[idx])
			}
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
