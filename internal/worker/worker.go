// Package worker provides a small bounded worker pool used to push scan
// candidates through the commit pipeline off the scan loop.
package worker

import (
	"context"
	"sync"
)

type ProcessFunc[T any] func(ctx context.Context, job T) error

// Pool fans jobs out to a fixed number of workers over a buffered channel.
// With one worker it degrades to a serial pipeline, which the scan manager
// relies on to keep dedup-then-create ordered per scan.
type Pool[T any] struct {
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	wg         sync.WaitGroup
}

func NewPool[T any](numWorkers, bufferSize int, processor ProcessFunc[T]) *Pool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
	}
}

func (p *Pool[T]) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.processor(ctx, job)
		}
	}
}

// Submit blocks when the buffer is full.
func (p *Pool[T]) Submit(job T) {
	p.jobs <- job
}

// Stop closes the queue and waits for in-flight jobs.
func (p *Pool[T]) Stop() {
	close(p.jobs)
	p.wg.Wait()
}
