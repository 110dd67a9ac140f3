// Package workerpool executes deferred task bodies on a bounded set of
// goroutines, keeping them off the dispatcher goroutine. The pool pulls
// from a queue.Tasks and reports every outcome, panics included, back
// through the queue's result channel.
package workerpool

import (
	"context"
	"sync"

	"github.com/tetrascale/dflow/action"
	"github.com/tetrascale/dflow/queue"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 8

// Pool runs tasks from a queue.Tasks on a fixed number of worker
// goroutines. A worker that encounters a panicking task recovers, reports
// the panic as the task's result, and keeps serving; a single bad task
// never takes the pool down.
type Pool[I any] struct {
	tasks   *queue.Tasks[I]
	workers int

	wake   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a pool of the given size over tasks; workers <= 0 means
// DefaultWorkers.
func New[I any](tasks *queue.Tasks[I], workers int) *Pool[I] {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pool[I]{
		tasks:   tasks,
		workers: workers,
		wake:    make(chan struct{}, 1),
	}
}

// Start launches the worker goroutines. They run until Shutdown is called
// or ctx is cancelled. Start is idempotent.
func (p *Pool[I]) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.serve(ctx)
		}
	})
}

// Notify wakes a worker to check the queue. Call it after submitting a
// task; it never blocks, collapsing bursts of submissions into a single
// wake-up that the serving worker then drains.
func (p *Pool[I]) Notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Shutdown stops the workers and waits for in-flight task bodies to
// return. Tasks still queued but not yet taken stay in the queue and are
// never run by this pool. Idempotent.
func (p *Pool[I]) Shutdown() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
	})
}

func (p *Pool[I]) serve(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
			p.drain(ctx)
		}
	}
}

func (p *Pool[I]) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		token, task, ok := p.tasks.Take()
		if !ok {
			return
		}
		// More work may remain; hand the wake token to a sibling so the
		// queue drains with whatever parallelism the pool has spare.
		p.Notify()
		outputs, err := p.run(token, task)
		p.tasks.Complete(token, outputs, err)
	}
}

// run executes one task body, converting a panic into an action.PanicError
// result.
func (p *Pool[I]) run(token queue.Token, task action.Task[I]) (outputs action.Outputs[I], err error) {
	defer func() {
		if r := recover(); r != nil {
			outputs = nil
			err = &action.PanicError{NodeID: token.Node, Recovered: r}
		}
	}()
	return task.Run()
}
