package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tetrascale/dflow/action"
	"github.com/tetrascale/dflow/queue"
)

func TestPoolExecutesTasksAndPublishesResults(t *testing.T) {
	tasks := queue.NewTasks[string](16)
	pool := New(tasks, 2)
	pool.Start(context.Background())
	defer pool.Shutdown()

	tok := queue.Token{Frontier: 1, Node: 4}
	tasks.Submit(tok, action.NewTask[string](func() (action.Outputs[string], error) {
		return action.Outputs[string]{}.Item("done", nil), nil
	}))
	pool.Notify()

	select {
	case r := <-tasks.Results():
		if r.Token != tok || r.Err != nil || len(r.Outputs) != 1 {
			t.Fatalf("result = %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task result")
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	tasks := queue.NewTasks[string](16)
	pool := New(tasks, 1)
	pool.Start(context.Background())
	defer pool.Shutdown()

	tok := queue.Token{Frontier: 2, Node: 7}
	tasks.Submit(tok, action.NewTask[string](func() (action.Outputs[string], error) {
		panic("task exploded")
	}))
	pool.Notify()

	select {
	case r := <-tasks.Results():
		var pe *action.PanicError
		if !errors.As(r.Err, &pe) || pe.NodeID != 7 {
			t.Fatalf("result error = %v, want PanicError for node 7", r.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for panic result")
	}

	// The worker that recovered must still be serving.
	tasks.Submit(tok, action.NewTask[string](func() (action.Outputs[string], error) {
		return nil, nil
	}))
	pool.Notify()
	select {
	case r := <-tasks.Results():
		if r.Err != nil {
			t.Fatalf("follow-up task failed: %v", r.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
}

func TestPoolDrainsBurstAcrossWorkers(t *testing.T) {
	tasks := queue.NewTasks[string](64)
	pool := New(tasks, 4)
	pool.Start(context.Background())
	defer pool.Shutdown()

	const n = 32
	var ran atomic.Int32
	for i := 0; i < n; i++ {
		tasks.Submit(queue.Token{Frontier: 1, Node: i}, action.NewTask[string](func() (action.Outputs[string], error) {
			ran.Add(1)
			return nil, nil
		}))
	}
	pool.Notify()

	for i := 0; i < n; i++ {
		select {
		case <-tasks.Results():
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d results arrived", i, n)
		}
	}
	if got := ran.Load(); got != n {
		t.Fatalf("ran = %d, want %d", got, n)
	}
}

func TestPoolShutdownIsIdempotent(t *testing.T) {
	tasks := queue.NewTasks[string](4)
	pool := New(tasks, 2)
	pool.Start(context.Background())
	pool.Shutdown()
	pool.Shutdown() // must not panic or hang
}
