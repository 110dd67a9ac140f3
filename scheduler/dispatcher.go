package scheduler

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/tetrascale/dflow/action"
	"github.com/tetrascale/dflow/emit"
	"github.com/tetrascale/dflow/queue"
	"github.com/tetrascale/dflow/session"
	"github.com/tetrascale/dflow/topology"
	"github.com/tetrascale/dflow/workerpool"
)

// Dispatcher is the scheduler's single-threaded control plane. One
// goroutine (the one that calls Run) owns every frontier, both effect
// queues, and the session collection; the only parallelism is task bodies
// executing on the worker pool. This is what makes the whole core
// lock-free at the graph level: no state here is ever touched from two
// goroutines.
type Dispatcher[I any] struct {
	graph       *Graph[I]
	descriptors []action.Descriptor
	limiters    []*semaphore.Weighted

	sessions  *session.Sessions
	connector *session.Connector[I]
	timers    *queue.Timers[I]
	tasks     *queue.Tasks[I]
	pool      *workerpool.Pool[I]

	emitter emit.Emitter
	metrics *emit.PrometheusMetrics

	// Dispatcher-thread state. None of the fields below are guarded;
	// they must only be touched from the Run goroutine.
	ctx       context.Context
	frontiers map[uint64]*frontier[I]
	states    map[queue.Token]taskState
	waiting   map[int][]waitingTask[I]
	flush     map[int]map[any]queue.Token
	pending   map[queue.Token]emission
	awaited   map[queue.Token]struct{}
	closed    bool
}

// taskState tracks one outstanding task between submission and result.
type taskState struct {
	node     int
	key      any // flush key, nil when the node is not flushing
	acquired bool
	start    time.Time
}

// waitingTask is a task queued behind its action's concurrency limit.
type waitingTask[I any] struct {
	token queue.Token
	task  action.Task[I]
}

// New creates a dispatcher over graph. The dispatcher does nothing until
// Run is called.
func New[I any](graph *Graph[I], opts ...Option[I]) (*Dispatcher[I], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	tasks := queue.NewTasks[I](cfg.resultCapacity)
	d := &Dispatcher[I]{
		graph:       graph,
		descriptors: make([]action.Descriptor, graph.NumNodes()),
		limiters:    make([]*semaphore.Weighted, graph.NumNodes()),
		sessions:    session.NewSessions(graph.sources),
		connector:   session.NewConnector[I](cfg.connectorCapacity),
		timers:      queue.NewTimers[I](),
		tasks:       tasks,
		pool:        workerpool.New(tasks, cfg.workers),
		emitter:     cfg.emitter,
		metrics:     cfg.metrics,
		frontiers:   make(map[uint64]*frontier[I]),
		states:      make(map[queue.Token]taskState),
		waiting:     make(map[int][]waitingTask[I]),
		flush:       make(map[int]map[any]queue.Token),
		pending:     make(map[queue.Token]emission),
		awaited:     make(map[queue.Token]struct{}),
	}
	for node := range graph.actions {
		desc := graph.actions[node].Descriptor()
		d.descriptors[node] = desc
		d.limiters[node] = semaphore.NewWeighted(int64(desc.Concurrency()))
	}
	return d, nil
}

// OpenSession opens a typed session against the dispatcher's graph. It
// fails with session.ErrType when no source accepts T. Safe to call from
// any goroutine, before or while Run executes.
//
// A free function because Go methods cannot introduce type parameters.
func OpenSession[T any, I any](d *Dispatcher[I]) (*session.Session[I, T], error) {
	return session.Open[T, I](d.sessions, d.connector)
}

// Run executes the dispatcher event loop until ctx is cancelled, or until
// every session handle has been released and no frontier, task, or timer
// has work left.
//
// The loop services its three inputs in priority order: worker results
// first (they unblock in-flight frontiers), due timers second, session
// ingress last.
func (d *Dispatcher[I]) Run(ctx context.Context) error {
	d.ctx = ctx
	d.pool.Start(ctx)
	defer d.pool.Shutdown()

	ingress := d.connector.Receive()
	for {
		if d.closed && d.quiescent() {
			d.emitter.Emit(emit.Event{Node: -1, Msg: "dispatcher_stop"})
			return nil
		}

		// Priority 1: worker results, without blocking.
		select {
		case result := <-d.tasks.Results():
			d.handleTaskResult(result)
			continue
		default:
		}

		// Priority 2: due timer deadlines.
		if d.fireDueTimers() {
			continue
		}

		// Nothing immediately serviceable: park until any input wakes us.
		var timerC <-chan time.Time
		var timer *time.Timer
		if deadline, ok := d.timers.NextDeadline(); ok {
			timer = time.NewTimer(time.Until(deadline))
			timerC = timer.C
		}

		select {
		case result := <-d.tasks.Results():
			d.handleTaskResult(result)
		case <-timerC:
			// Loop around; fireDueTimers picks the deadline up.
		case msg, ok := <-ingress:
			if !ok {
				d.closed = true
				ingress = nil
				break
			}
			if d.connector.Depth() >= d.connector.Capacity()-1 {
				d.metrics.Backpressure()
			}
			d.handleMessage(msg)
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// quiescent reports whether no work remains anywhere: no live frontier, no
// outstanding or queued task, no armed timer.
func (d *Dispatcher[I]) quiescent() bool {
	return len(d.frontiers) == 0 && len(d.states) == 0 && d.tasks.Len() == 0 && d.timers.Len() == 0
}

func (d *Dispatcher[I]) handleMessage(msg session.Message[I]) {
	switch msg.Kind {
	case session.MessageItem:
		d.handleItem(msg.Session, msg.Item)
	case session.MessageOpen:
		d.emitter.Emit(emit.Event{Node: -1, Msg: "session_open", Meta: map[string]interface{}{"session": msg.Session}})
		d.fanoutSignal(action.InterestOpen, msg.Session, d.sessions.SourceNodes(msg.Session))
	case session.MessageDrop:
		sources := d.sessions.Remove(msg.Session)
		d.emitter.Emit(emit.Event{Node: -1, Msg: "session_drop", Meta: map[string]interface{}{"session": msg.Session}})
		d.fanoutSignal(action.InterestDrop, msg.Session, sources)
	}
}

// handleItem turns one session submission into a fresh frontier seeded at
// the session's source nodes and drains it as far as synchronous execution
// allows.
func (d *Dispatcher[I]) handleItem(sessionID uint64, item action.Item[I]) {
	sources := d.sessions.SourceNodes(sessionID)
	if len(sources) == 0 {
		// The session dropped with submissions still buffered; nothing to
		// feed them into.
		return
	}

	seeds := make(map[int]emission, len(sources))
	em := emission{data: item.Data, present: item.Present()}
	for _, source := range sources {
		seeds[source] = em
	}

	f := newFrontier(d.mintID(), d.graph.topo, item.ID, sources, seeds)
	d.frontiers[f.id] = f
	d.metrics.FrontierOpened()
	d.emitter.Emit(emit.Event{Frontier: f.id, Node: -1, Msg: "frontier_open", Meta: map[string]interface{}{"session": sessionID}})
	d.drain(f)
}

// drain takes visitable nodes off f until execution defers or the
// traversal runs dry, then retires f if it is exhausted.
func (d *Dispatcher[I]) drain(f *frontier[I]) {
	for {
		node, ok := f.take()
		if !ok {
			break
		}
		d.executeNode(f, node)
	}
	d.maybeRetire(f)
}

func (d *Dispatcher[I]) maybeRetire(f *frontier[I]) {
	if !f.done() {
		return
	}
	if _, live := d.frontiers[f.id]; !live {
		return
	}
	delete(d.frontiers, f.id)
	d.metrics.FrontierClosed()
	d.emitter.Emit(emit.Event{Frontier: f.id, Node: -1, Msg: "frontier_close"})
}

// executeNode runs one node visit: seeded nodes complete with their
// injected emission, everything else executes its action against a view of
// its predecessors. A node whose outputs defer (a task, or a timer
// carrying outputs) stays in flight until the deferred work resolves.
func (d *Dispatcher[I]) executeNode(f *frontier[I], node int) {
	if em, ok := f.seed(node); ok {
		d.completeNode(f, node, em)
		return
	}

	input := action.NewItemInput(f.itemID, f.view(node))
	outputs, err := d.execute(f.id, node, input)
	if err != nil {
		// An error alongside outputs is a diagnostic riding a partial
		// success; an error alone fails the node, which completes with no
		// output so the frontier keeps draining.
		d.reportError(f.id, node, err)
		if outputs == nil {
			d.completeNode(f, node, emission{})
			return
		}
	}

	em, deferred := d.applyOutputs(f, node, outputs, emission{})
	if deferred {
		d.pending[queue.Token{Frontier: f.id, Node: node}] = em
		return
	}
	d.completeNode(f, node, em)
}

// execute invokes one action inside the panic boundary. A panicking action
// becomes an *action.PanicError; the dispatcher survives.
func (d *Dispatcher[I]) execute(frontierID uint64, node int, input action.Input[I]) (outputs action.Outputs[I], err error) {
	defer func() {
		if r := recover(); r != nil {
			outputs = nil
			err = &action.PanicError{NodeID: node, Recovered: r}
		}
	}()
	start := time.Now()
	outputs, err = d.graph.actions[node].Execute(d.ctx, input)
	d.emitter.Emit(emit.Event{
		Frontier: frontierID,
		Node:     node,
		Msg:      "node_execute",
		Meta: map[string]interface{}{
			"duration_ms": time.Since(start).Milliseconds(),
			"outputs":     len(outputs),
		},
	})
	return outputs, err
}

func (d *Dispatcher[I]) completeNode(f *frontier[I], node int, em emission) {
	if err := f.complete(node, em); err != nil {
		// Completing a node the frontier does not own is a dispatcher
		// bug; surface it as a diagnostic rather than corrupting state.
		d.reportError(f.id, node, err)
		return
	}
	d.emitter.Emit(emit.Event{Frontier: f.id, Node: node, Msg: "node_complete", Meta: map[string]interface{}{"present": em.present}})
}

// applyOutputs routes one execution's effects: items matching the
// frontier's identifier become the node's emission (last one wins), items
// under other identifiers re-enter the graph as derived frontiers below
// the node, tasks go to the worker pool, timers to the timer queue.
//
// The returned flag reports whether the node's completion is deferred: a
// task always defers it, as does a Set or Reset timer carrying outputs
// (the timer's firing is the node's delayed emission).
func (d *Dispatcher[I]) applyOutputs(f *frontier[I], node int, outputs action.Outputs[I], em emission) (emission, bool) {
	token := queue.Token{Frontier: f.id, Node: node}
	ownItem := false
	taskDeferred := false
	timerDeferred := false
	for _, out := range outputs {
		switch out.Kind {
		case action.OutputItem:
			if sameID(out.Item.ID, f.itemID) {
				em = emission{data: out.Item.Data, present: out.Item.Present()}
				ownItem = true
			} else {
				d.spawnDerived(node, out.Item)
			}
		case action.OutputTask:
			d.submitTask(f, node, out.Task)
			taskDeferred = true
		case action.OutputTimer:
			d.timers.Submit(token, out.Timer)
			d.metrics.QueueDepth("timer", d.timers.Len())
			if out.Timer.Kind != action.TimerClear {
				d.emitter.Emit(emit.Event{Frontier: f.id, Node: node, Msg: "timer_set"})
			}
			if withOutputs(out.Timer) {
				d.awaited[token] = struct{}{}
				timerDeferred = true
			}
		}
	}
	// A flushing node that emits its own item alongside a task has already
	// superseded that task: the item is the self-contained result, so the
	// task is withdrawn before a worker wastes cycles on it.
	if taskDeferred && ownItem && d.descriptors[node].Has(action.Flush) {
		d.withdrawTask(token)
		if timerDeferred {
			d.awaited[token] = struct{}{}
		}
		taskDeferred = false
	}
	return em, taskDeferred || timerDeferred
}

// withOutputs reports whether the timer defers its node: a one-shot
// deadline carrying outputs is that node's delayed emission. Repeating
// timers never defer; their ticks re-enter the graph as derived frontiers
// instead, since a node cannot stay in flight across an unbounded number
// of firings.
func withOutputs[I any](t action.Timer[I]) bool {
	return (t.Kind == action.TimerSet || t.Kind == action.TimerReset) && t.Outputs != nil
}

// spawnDerived re-enters the graph below origin with an emission keyed by
// a different identifier than the frontier that produced it: a fresh
// frontier over origin's successors, with origin's output pre-seeded.
func (d *Dispatcher[I]) spawnDerived(origin int, item action.Item[I]) {
	f := newDerivedFrontier(d.mintID(), d.graph.topo, item.ID, origin, emission{data: item.Data, present: item.Present()})
	if f == nil {
		return
	}
	d.frontiers[f.id] = f
	d.metrics.FrontierOpened()
	d.emitter.Emit(emit.Event{Frontier: f.id, Node: origin, Msg: "frontier_open", Meta: map[string]interface{}{"derived": true}})
	d.drain(f)
}

// submitTask hands a task to the worker pool, or parks it behind the
// action's concurrency limit. For flushing nodes it first cancels any
// pending task for the same key: the new emission supersedes it.
func (d *Dispatcher[I]) submitTask(f *frontier[I], node int, task action.Task[I]) {
	token := queue.Token{Frontier: f.id, Node: node}
	state := taskState{node: node, start: time.Now()}

	if d.descriptors[node].Has(action.Flush) {
		key := any(f.itemID)
		state.key = key
		if old, ok := d.flush[node][key]; ok && old != token {
			d.cancelTask(old)
		}
		if d.flush[node] == nil {
			d.flush[node] = make(map[any]queue.Token)
		}
		d.flush[node][key] = token
	}

	if d.limiters[node].TryAcquire(1) {
		state.acquired = true
		d.tasks.Submit(token, task)
		d.pool.Notify()
	} else {
		d.waiting[node] = append(d.waiting[node], waitingTask[I]{token: token, task: task})
	}
	d.states[token] = state
	d.metrics.QueueDepth("task", d.tasks.Len())
	d.emitter.Emit(emit.Event{Frontier: f.id, Node: node, Msg: "task_submit"})
}

// withdrawTask undoes a task submission: dequeued if still waiting,
// token-invalidated if already with the worker pool (best effort, the body
// is not interrupted). It reports whether there was a task to withdraw.
func (d *Dispatcher[I]) withdrawTask(token queue.Token) bool {
	state, ok := d.states[token]
	if !ok {
		return false
	}
	delete(d.states, token)
	delete(d.pending, token)
	delete(d.awaited, token)

	if state.acquired {
		d.tasks.Cancel(token)
		d.limiters[state.node].Release(1)
		d.pumpWaiting(state.node)
	} else {
		queued := d.waiting[state.node][:0]
		for _, w := range d.waiting[state.node] {
			if w.token != token {
				queued = append(queued, w)
			}
		}
		d.waiting[state.node] = queued
	}
	if state.key != nil {
		if current, ok := d.flush[state.node][state.key]; ok && current == token {
			delete(d.flush[state.node], state.key)
		}
	}
	d.emitter.Emit(emit.Event{Frontier: token.Frontier, Node: token.Node, Msg: "task_cancel"})
	return true
}

// cancelTask withdraws an outstanding task whose node is parked waiting
// for it. The node completes with no output so its frontier can finish
// draining.
func (d *Dispatcher[I]) cancelTask(token queue.Token) {
	if !d.withdrawTask(token) {
		return
	}
	if f := d.frontiers[token.Frontier]; f != nil {
		d.completeNode(f, token.Node, emission{})
		d.drain(f)
	}
}

// pumpWaiting submits tasks parked behind node's concurrency limit while
// slots are free, in FIFO order.
func (d *Dispatcher[I]) pumpWaiting(node int) {
	for len(d.waiting[node]) > 0 && d.limiters[node].TryAcquire(1) {
		next := d.waiting[node][0]
		d.waiting[node] = d.waiting[node][1:]
		state := d.states[next.token]
		state.acquired = true
		state.start = time.Now()
		d.states[next.token] = state
		d.tasks.Submit(next.token, next.task)
		d.pool.Notify()
	}
}

// handleTaskResult resumes the node that deferred to the finished task:
// its outputs are interpreted exactly as if produced synchronously, and
// the node completes unless it deferred again.
func (d *Dispatcher[I]) handleTaskResult(result queue.TaskResult[I]) {
	state, ok := d.states[result.Token]
	if !ok {
		// Cancelled after the queue published the result; drop it.
		return
	}
	delete(d.states, result.Token)
	d.metrics.TaskFinished(time.Since(state.start), result.Err)
	if state.acquired {
		d.limiters[state.node].Release(1)
		d.pumpWaiting(state.node)
	}
	if state.key != nil {
		if current, ok := d.flush[state.node][state.key]; ok && current == result.Token {
			delete(d.flush[state.node], state.key)
		}
	}
	d.emitter.Emit(emit.Event{Frontier: result.Token.Frontier, Node: result.Token.Node, Msg: "task_result"})

	f := d.frontiers[result.Token.Frontier]
	if f == nil {
		// The producing frontier is gone (task from a timer tick or a
		// signal handler); route the outputs below the node directly.
		if result.Err != nil {
			d.reportError(result.Token.Frontier, result.Token.Node, result.Err)
			return
		}
		d.routeDetached(result.Token, result.Outputs)
		return
	}

	base := d.pending[result.Token]
	delete(d.pending, result.Token)
	if result.Err != nil {
		d.reportError(f.id, result.Token.Node, result.Err)
	}
	if result.Err != nil && result.Outputs == nil {
		d.completeNode(f, result.Token.Node, base)
	} else {
		em, deferred := d.applyOutputs(f, result.Token.Node, result.Outputs, base)
		if deferred {
			d.pending[result.Token] = em
			return
		}
		d.completeNode(f, result.Token.Node, em)
	}
	d.drain(f)
}

// fireDueTimers drains every due deadline, reporting whether any fired.
//
// A firing resolves in one of two ways. If the token's node is awaiting
// this timer (a one-shot Set/Reset with outputs), the outputs resume that
// node the same way a task result would. Otherwise the node completed long
// ago — the outputs re-enter the graph below it as derived frontiers, and
// for repeating timers the body is re-armed so the next tick carries it
// again.
func (d *Dispatcher[I]) fireDueTimers() bool {
	due := d.timers.TakeDue(time.Now())
	if len(due) == 0 {
		return false
	}
	for _, fired := range due {
		d.metrics.TimerFired()
		d.emitter.Emit(emit.Event{Frontier: fired.Token.Frontier, Node: fired.Token.Node, Msg: "timer_fire"})
		d.timers.Rearm(fired.Token, fired.Outputs)

		f := d.frontiers[fired.Token.Frontier]
		if _, awaiting := d.awaited[fired.Token]; awaiting && f != nil {
			delete(d.awaited, fired.Token)
			base := d.pending[fired.Token]
			delete(d.pending, fired.Token)
			em, deferred := d.applyOutputs(f, fired.Token.Node, fired.Outputs, base)
			if deferred {
				d.pending[fired.Token] = em
				continue
			}
			d.completeNode(f, fired.Token.Node, em)
			d.drain(f)
			continue
		}
		d.routeDetached(fired.Token, fired.Outputs)
	}
	d.metrics.QueueDepth("timer", d.timers.Len())
	return true
}

// routeDetached handles outputs produced with no live deferred node to
// resume: items re-enter the graph below the token's node, tasks run under
// a fresh detached token, timers re-arm under the original one.
func (d *Dispatcher[I]) routeDetached(token queue.Token, outputs action.Outputs[I]) {
	for _, out := range outputs {
		switch out.Kind {
		case action.OutputItem:
			d.spawnDerived(token.Node, out.Item)
		case action.OutputTask:
			d.submitDetachedTask(token.Node, out.Task)
		case action.OutputTimer:
			d.timers.Submit(token, out.Timer)
		}
	}
}

// submitDetachedTask submits a task that has no frontier to resume; its
// result routes through routeDetached when it returns.
func (d *Dispatcher[I]) submitDetachedTask(node int, task action.Task[I]) {
	token := queue.Token{Frontier: d.mintID(), Node: node}
	state := taskState{node: node, start: time.Now()}
	if d.limiters[node].TryAcquire(1) {
		state.acquired = true
		d.tasks.Submit(token, task)
		d.pool.Notify()
	} else {
		d.waiting[node] = append(d.waiting[node], waitingTask[I]{token: token, task: task})
	}
	d.states[token] = state
}

// fanoutSignal delivers a session lifecycle signal to every action that
// declared the matching interest and sits downstream of one of the
// session's sources. Signals bypass the frontier mechanism entirely; any
// outputs they produce are routed detached.
func (d *Dispatcher[I]) fanoutSignal(interest action.Interest, sessionID uint64, sources []int) {
	if len(sources) == 0 {
		return
	}
	distance := d.graph.topo.Distance()
	signal := action.Signal{Interest: interest, Session: sessionID}
	for node := 0; node < d.graph.NumNodes(); node++ {
		if !d.descriptors[node].Interested(interest) {
			continue
		}
		downstream := false
		for _, source := range sources {
			if distance[source][node] < topology.Unreachable && node != source {
				downstream = true
				break
			}
		}
		if !downstream {
			continue
		}
		outputs, err := d.execute(0, node, action.NewSignalInput[I](signal))
		if err != nil {
			d.reportError(0, node, err)
			continue
		}
		d.routeDetached(queue.Token{Node: node}, outputs)
	}
}

// reportError surfaces an action failure as a diagnostic event. Panics
// additionally count toward the panic metric. Errors never escape the
// dispatcher as panics.
func (d *Dispatcher[I]) reportError(frontierID uint64, node int, err error) {
	var pe *action.PanicError
	if errors.As(err, &pe) {
		d.metrics.PanicRecovered()
	}
	d.emitter.Emit(emit.Event{
		Frontier: frontierID,
		Node:     node,
		Msg:      "action_error",
		Meta:     map[string]interface{}{"error": err.Error()},
	})
}

// mintID generates a fresh frontier identifier from a random UUID's high
// half, retrying on the vanishingly unlikely collision with a live
// frontier.
func (d *Dispatcher[I]) mintID() uint64 {
	for {
		u := uuid.New()
		id := binary.BigEndian.Uint64(u[:8])
		if id == 0 {
			continue
		}
		if _, taken := d.frontiers[id]; !taken {
			return id
		}
	}
}

// sameID reports whether two identifiers are equal. Identifier types must
// be comparable at runtime, the same requirement map keys carry.
func sameID[I any](a, b I) bool {
	return any(a) == any(b)
}
