package scheduler

import (
	"errors"

	"github.com/tetrascale/dflow/emit"
)

// Option is a functional option configuring a Dispatcher.
//
// Example:
//
//	d, err := scheduler.New(graph,
//	    scheduler.WithWorkers[string](16),
//	    scheduler.WithConnectorCapacity[string](2048),
//	    scheduler.WithEmitter[string](emit.NewLogEmitter(os.Stderr, false)),
//	)
type Option[I any] func(*config) error

type config struct {
	connectorCapacity int
	resultCapacity    int
	workers           int
	emitter           emit.Emitter
	metrics           *emit.PrometheusMetrics
}

func defaultConfig() config {
	return config{
		connectorCapacity: 0, // session.DefaultCapacity
		resultCapacity:    256,
		workers:           0, // workerpool.DefaultWorkers
		emitter:           emit.NewNullEmitter(),
	}
}

// WithConnectorCapacity sets the ingress channel's buffer size. Producers
// block once this many messages are queued, which is how back-pressure
// reaches callers submitting faster than the dispatcher drains.
func WithConnectorCapacity[I any](n int) Option[I] {
	return func(cfg *config) error {
		if n < 1 {
			return errors.New("scheduler: connector capacity must be at least 1")
		}
		cfg.connectorCapacity = n
		return nil
	}
}

// WithResultCapacity sets the buffer size of the worker-to-dispatcher
// result channel. Workers block returning results once it fills.
func WithResultCapacity[I any](n int) Option[I] {
	return func(cfg *config) error {
		if n < 1 {
			return errors.New("scheduler: result capacity must be at least 1")
		}
		cfg.resultCapacity = n
		return nil
	}
}

// WithWorkers sets the worker pool size for task execution.
func WithWorkers[I any](n int) Option[I] {
	return func(cfg *config) error {
		if n < 1 {
			return errors.New("scheduler: worker count must be at least 1")
		}
		cfg.workers = n
		return nil
	}
}

// WithEmitter routes observability events to emitter instead of discarding
// them.
func WithEmitter[I any](emitter emit.Emitter) Option[I] {
	return func(cfg *config) error {
		if emitter == nil {
			return errors.New("scheduler: emitter must not be nil")
		}
		cfg.emitter = emitter
		return nil
	}
}

// WithMetrics records execution metrics to metrics. Nil disables
// collection, which is also the default.
func WithMetrics[I any](metrics *emit.PrometheusMetrics) Option[I] {
	return func(cfg *config) error {
		cfg.metrics = metrics
		return nil
	}
}
