// Package pool implements the fixed-size worker pool that drains the job
// queue.
package pool

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tordynnar/wadup/internal/job"
	"github.com/tordynnar/wadup/internal/module"
	"github.com/tordynnar/wadup/internal/sandbox"
)

// Pool is a fixed-size set of worker goroutines draining one shared job
// queue. Each worker executes jobs synchronously: a guest call never
// yields the worker goroutine, since the guest is bounded by its fuel
// budget rather than cooperative suspension.
type Pool struct {
	threads  int
	env      *sandbox.Environment
	modules  []*module.Module
	limits   sandbox.Limits
	queue    *unboundedQueue
	tracking chan<- job.Event
}

// New builds a pool of the given size. Start must be called to launch the
// worker goroutines.
func New(threads int, env *sandbox.Environment, modules []*module.Module, limits sandbox.Limits, tracking chan<- job.Event) *Pool {
	return &Pool{
		threads:  threads,
		env:      env,
		modules:  modules,
		limits:   limits,
		queue:    newUnboundedQueue(),
		tracking: tracking,
	}
}

// Queue returns the channel new jobs (and Die signals) are sent on. The
// ingestion driver and the sandbox ABI's carve/output fan-out both send on
// this same channel; an enqueue here never blocks waiting for a worker to
// drain it, since the queue is unbounded.
func (p *Pool) Queue() chan<- job.Item { return p.queue.in }

// Start launches the worker goroutines and returns a WaitGroup callers can
// Wait on for every worker to exit. A worker exits only on a Die item or on
// queue closure.
func (p *Pool) Start() *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(p.threads)

	for i := 0; i < p.threads; i++ {
		workerID := i
		go func() {
			defer wg.Done()
			p.worker(workerID)
		}()
	}

	return &wg
}

func (p *Pool) worker(id int) {
	for item := range p.queue.out {
		if item.Die {
			log.Debug().Int("worker", id).Msg("worker received die signal, exiting")
			return
		}

		j := item.Job
		result := p.run(j)
		j.Blob.Release()
		p.tracking <- job.Event{Result: &result}
	}
}

// run executes j's sandbox and converts a host-side panic (e.g. a
// wasmtime-go internal invariant violation) into a job error instead of
// taking the whole worker down with it, since everything else surfaces as
// a trap or ABI error from inside sandbox.Run itself.
func (p *Pool) run(j *job.Job) (result job.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("job_id", j.Info.ID.String()).Msg("recovered from panic while running job")
			result = job.Result{ID: j.Info.ID, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	return sandbox.Run(p.env, p.modules, j, p.limits)
}
