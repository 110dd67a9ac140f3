package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingEmitter(t *testing.T) (*OTelEmitter, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewOTelEmitter(tp.Tracer("test")), exporter
}

func TestOTelEmitterCreatesSpans(t *testing.T) {
	emitter, exporter := newRecordingEmitter(t)

	emitter.Emit(Event{
		Frontier: 5,
		Node:     2,
		Msg:      "node_execute",
		Meta:     map[string]interface{}{"outputs": 3},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "node_execute" {
		t.Fatalf("span name = %q, want node_execute", span.Name)
	}

	attrs := make(map[string]interface{})
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs["dflow.frontier"] != int64(5) || attrs["dflow.node"] != int64(2) {
		t.Fatalf("span attributes = %v", attrs)
	}
	if attrs["outputs"] != int64(3) {
		t.Fatalf("meta attribute missing: %v", attrs)
	}
}

func TestOTelEmitterMarksErrors(t *testing.T) {
	emitter, exporter := newRecordingEmitter(t)

	emitter.Emit(Event{
		Frontier: 1,
		Node:     0,
		Msg:      "action_error",
		Meta:     map[string]interface{}{"error": "decode failed"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Fatalf("span status = %v, want Error", spans[0].Status.Code)
	}
}

func TestOTelEmitterBatchHonorsCancellation(t *testing.T) {
	emitter, exporter := newRecordingEmitter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := emitter.EmitBatch(ctx, []Event{{Msg: "never"}})
	if err == nil {
		t.Fatal("EmitBatch() with cancelled context should fail")
	}
	if len(exporter.GetSpans()) != 0 {
		t.Fatal("no spans should be recorded after cancellation")
	}
}
