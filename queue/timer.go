package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/tetrascale/dflow/action"
)

// TimerResult pairs a fired timer's token with the outputs it carried, if
// any. A timer fired with no outputs (the common case for Repeat once its
// one-shot data has already been delivered) yields no TimerResult.
type TimerResult[I any] struct {
	Token   Token
	Outputs action.Outputs[I]
}

type timerEntry[I any] struct {
	token    Token
	kind     action.TimerKind
	deadline time.Time
	interval time.Duration
	outputs  action.Outputs[I]
	index    int
}

type timerHeap[I any] []*timerEntry[I]

func (h timerHeap[I]) Len() int { return len(h) }

func (h timerHeap[I]) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap[I]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap[I]) Push(x any) {
	entry := x.(*timerEntry[I])
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *timerHeap[I]) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*h = old[:n-1]
	return entry
}

// Timers is a priority queue of armed deadlines, keyed by Token, built on
// container/heap. It
// implements the four timer semantics an action can request:
//
//   - Set arms a deadline only if none is currently armed for the token; if
//     one already exists its deadline is left untouched and its outputs are
//     replaced by the new ones (last writer wins) — unless the existing
//     entry was armed without outputs, in which case the new outputs are
//     dropped: a Set without outputs can only be given a payload by Reset.
//   - Reset always overwrites both the deadline and the outputs, effectively
//     cancelling whatever was previously armed.
//   - Repeat arms a recurring timer. Its first deadline is interval from
//     submission; once it fires, the next deadline is computed from the
//     deadline that just fired plus interval, not from the fire time, so
//     the period does not drift under scheduler load.
//   - Clear removes whatever is armed for the token.
type Timers[I any] struct {
	mu    sync.Mutex
	heap  timerHeap[I]
	index map[Token]*timerEntry[I]
}

// NewTimers creates an empty timer queue.
func NewTimers[I any]() *Timers[I] {
	return &Timers[I]{index: make(map[Token]*timerEntry[I])}
}

// Submit arms, merges, or clears the timer for token according to the kind
// of timer effect given.
func (q *Timers[I]) Submit(token Token, timer action.Timer[I]) {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch timer.Kind {
	case action.TimerClear:
		q.remove(token)

	case action.TimerSet:
		if prior, ok := q.index[token]; ok {
			prior.outputs = mergeOutputs(prior.outputs, timer.Outputs)
			return
		}
		q.insert(&timerEntry[I]{
			token:    token,
			kind:     action.TimerSet,
			deadline: timer.Deadline,
			outputs:  timer.Outputs,
		})

	case action.TimerReset:
		q.remove(token)
		q.insert(&timerEntry[I]{
			token:    token,
			kind:     action.TimerReset,
			deadline: timer.Deadline,
			outputs:  timer.Outputs,
		})

	case action.TimerRepeat:
		if prior, ok := q.index[token]; ok {
			prior.kind = action.TimerRepeat
			prior.interval = timer.Interval
			prior.outputs = timer.Outputs
			return
		}
		q.insert(&timerEntry[I]{
			token:    token,
			kind:     action.TimerRepeat,
			deadline: time.Now().Add(timer.Interval),
			interval: timer.Interval,
			outputs:  timer.Outputs,
		})
	}
}

func (q *Timers[I]) insert(entry *timerEntry[I]) {
	q.index[entry.token] = entry
	heap.Push(&q.heap, entry)
}

func (q *Timers[I]) remove(token Token) {
	entry, ok := q.index[token]
	if !ok {
		return
	}
	delete(q.index, token)
	if entry.index >= 0 {
		heap.Remove(&q.heap, entry.index)
	}
}

// mergeOutputs applies Set's "and" merge against an existing entry: the
// new outputs replace the old ones (last writer wins), except that an
// entry armed without outputs yields nothing — it cannot be given outputs
// by a later Set, only by a Reset.
func mergeOutputs[I any](prior, next action.Outputs[I]) action.Outputs[I] {
	if prior == nil {
		return nil
	}
	return next
}

// Rearm restores outputs on the armed repeat timer for token, so the next
// firing carries them again. It reports false when token has no armed
// repeat entry (the timer was cleared, reset, or never repeating); Set and
// Reset entries are left untouched. The dispatcher calls this after
// delivering a repeat firing, which is what makes a repeating timer tick
// with the same payload until cleared.
func (q *Timers[I]) Rearm(token Token, outputs action.Outputs[I]) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.index[token]
	if !ok || entry.kind != action.TimerRepeat {
		return false
	}
	entry.outputs = outputs
	return true
}

// NextDeadline returns the earliest armed deadline, or false if no timer is
// armed.
func (q *Timers[I]) NextDeadline() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return time.Time{}, false
	}
	return q.heap[0].deadline, true
}

// TakeDue pops and returns every timer whose deadline is at or before now.
// Repeat timers are reinserted with their next deadline computed from the
// deadline that just fired, and with their outputs cleared so a caller must
// arm them again explicitly to fire with data a second time.
func (q *Timers[I]) TakeDue(now time.Time) []TimerResult[I] {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []TimerResult[I]
	for len(q.heap) > 0 && !q.heap[0].deadline.After(now) {
		entry := heap.Pop(&q.heap).(*timerEntry[I])
		delete(q.index, entry.token)

		switch entry.kind {
		case action.TimerRepeat:
			fired := entry.outputs
			next := &timerEntry[I]{
				token:    entry.token,
				kind:     action.TimerRepeat,
				deadline: entry.deadline.Add(entry.interval),
				interval: entry.interval,
			}
			q.insert(next)
			if fired != nil {
				due = append(due, TimerResult[I]{Token: entry.token, Outputs: fired})
			}
		default: // Set, Reset
			if entry.outputs != nil {
				due = append(due, TimerResult[I]{Token: entry.token, Outputs: entry.outputs})
			}
		}
	}
	return due
}

// Len reports the number of timers currently armed.
func (q *Timers[I]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
