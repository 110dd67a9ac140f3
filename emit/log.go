package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter implements Emitter by writing structured output to a writer.
//
// Two output modes are supported:
//   - Text mode (default): human-readable key=value lines, e.g.
//     [node_execute] frontier=3 node=2
//   - JSON mode: one JSON object per line, e.g.
//     {"frontier":3,"node":2,"msg":"node_execute","meta":null}
//
// Writes are serialized by an internal mutex so events from the dispatcher
// and worker goroutines do not interleave mid-line.
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to writer (os.Stdout when
// nil), in JSON mode when jsonMode is true.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes one event in the configured format. Write errors are
// swallowed: losing a log line must never disturb scheduler execution.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(event)
}

// EmitBatch writes the events in order under a single lock acquisition.
func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, event := range events {
		l.write(event)
	}
	return nil
}

// Flush is a no-op: every Emit writes through immediately.
func (l *LogEmitter) Flush(context.Context) error { return nil }

func (l *LogEmitter) write(event Event) {
	if l.jsonMode {
		payload := struct {
			Frontier uint64                 `json:"frontier"`
			Node     int                    `json:"node"`
			Msg      string                 `json:"msg"`
			Meta     map[string]interface{} `json:"meta"`
		}{event.Frontier, event.Node, event.Msg, event.Meta}
		line, err := json.Marshal(payload)
		if err != nil {
			return
		}
		_, _ = l.writer.Write(append(line, '\n'))
		return
	}

	_, _ = fmt.Fprintf(l.writer, "[%s] frontier=%d node=%d", event.Msg, event.Frontier, event.Node)
	if len(event.Meta) > 0 {
		if meta, err := json.Marshal(event.Meta); err == nil {
			_, _ = fmt.Fprintf(l.writer, " meta=%s", meta)
		}
	}
	_, _ = fmt.Fprintln(l.writer)
}
