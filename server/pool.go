package server

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many Intcode machines run at once. Each machine owns its
// memory, so runs need no serialisation beyond the bound itself.
type Pool struct {
	sem     *semaphore.Weighted
	size    int64
	running atomic.Int64
	served  atomic.Int64
}

// NewPool creates a pool admitting size concurrent runs.
func NewPool(size int64) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(size), size: size}
}

// Do waits for a free slot, then runs fn, recovering from panics. It
// returns ctx.Err() if the context ends before a slot frees up.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	p.running.Add(1)
	defer p.running.Add(-1)
	p.served.Add(1)
	return p.execute(fn)
}

// execute runs fn, recovering from panics.
func (p *Pool) execute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("run panicked: %v", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// Running returns the number of runs in progress.
func (p *Pool) Running() int64 { return p.running.Load() }

// Served returns the number of runs started since the pool was created.
func (p *Pool) Served() int64 { return p.served.Load() }

// Drain blocks until every in-flight run has finished and then holds all
// slots, so no new run can start.
func (p *Pool) Drain(ctx context.Context) error {
	return p.sem.Acquire(ctx, p.size)
}
