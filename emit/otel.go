package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by recording each event as an
// OpenTelemetry span.
//
// Each span carries:
//   - Span name: event.Msg (e.g. "node_execute", "timer_fire")
//   - Attributes: frontier, node, and all event.Meta fields
//   - Status: Error when event.Meta["error"] is present
//
// The emitter consumes a trace.Tracer; configuring a provider and
// exporter is the host application's responsibility.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter over tracer. A nil tracer falls
// back to the globally registered provider's "dflow" tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	if tracer == nil {
		tracer = otel.Tracer("dflow")
	}
	return &OTelEmitter{tracer: tracer}
}

// Emit records the event as a point-in-time span.
func (o *OTelEmitter) Emit(event Event) {
	o.record(context.Background(), event)
}

// EmitBatch records each event as its own span, in order.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.record(ctx, event)
	}
	return nil
}

// Flush is a no-op here; span export buffering lives in the host's span
// processor, which owns its own flushing.
func (o *OTelEmitter) Flush(context.Context) error { return nil }

func (o *OTelEmitter) record(ctx context.Context, event Event) {
	attrs := []attribute.KeyValue{
		attribute.Int64("dflow.frontier", int64(event.Frontier)),
		attribute.Int("dflow.node", event.Node),
	}
	for key, val := range event.Meta {
		attrs = append(attrs, metaAttribute(key, val))
	}

	_, span := o.tracer.Start(ctx, event.Msg, trace.WithAttributes(attrs...))
	if errVal, ok := event.Meta["error"]; ok {
		span.SetStatus(codes.Error, fmt.Sprint(errVal))
	}
	span.End()
}

func metaAttribute(key string, val interface{}) attribute.KeyValue {
	switch v := val.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case uint64:
		return attribute.Int64(key, int64(v))
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
