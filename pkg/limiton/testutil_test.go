package limiton

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/randalmurphal/limiton/pkg/limiton/event"
)

// widget is the product type used throughout the tests. It is large
// enough to avoid the tiny allocator so cleanups run reliably.
type widget struct {
	id    int
	label string
	pad   [64]byte
}

// counter builds widgets and counts constructor calls.
type counter struct {
	calls atomic.Int64
}

func (c *counter) ctor(_ context.Context) (*widget, error) {
	n := c.calls.Add(1)
	return &widget{id: int(n)}, nil
}

func (c *counter) build(_ context.Context, label string) (*widget, error) {
	n := c.calls.Add(1)
	return &widget{id: int(n), label: label}, nil
}

func (c *counter) count() int {
	return int(c.calls.Load())
}

func mustRegistry(t *testing.T, p Policy, opts ...Option) *Registry[widget] {
	t.Helper()
	reg, err := New[widget](p, opts...)
	require.NoError(t, err)
	return reg
}

func mustGet(t *testing.T, h Handle[widget]) *widget {
	t.Helper()
	w, err := h.Get()
	require.NoError(t, err)
	return w
}

// eventCollector is an event.Sink that keeps everything published to it.
type eventCollector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *eventCollector) Publish(_ context.Context, evt event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *eventCollector) types() []event.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Type, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func (c *eventCollector) all() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

// logCapture collects JSON log lines.
type logCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *logCapture) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *logCapture) logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(l, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (l *logCapture) records(t *testing.T) []map[string]any {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(l.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func (l *logCapture) messages(t *testing.T) []string {
	t.Helper()
	var msgs []string
	for _, rec := range l.records(t) {
		msgs = append(msgs, rec["msg"].(string))
	}
	return msgs
}

// fakeMetrics counts recorder calls.
type fakeMetrics struct {
	mu           sync.Mutex
	admitted     int
	evicted      int
	rejected     int
	reused       int
	mismatched   int
	constructed  int
	constructErr int
	registries   map[string]bool
}

func (m *fakeMetrics) note(registry string) {
	if m.registries == nil {
		m.registries = make(map[string]bool)
	}
	m.registries[registry] = true
}

func (m *fakeMetrics) RecordAdmission(_ context.Context, registry string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.note(registry)
	m.admitted++
}

func (m *fakeMetrics) RecordEviction(_ context.Context, registry string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.note(registry)
	m.evicted++
}

func (m *fakeMetrics) RecordRejection(_ context.Context, registry string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.note(registry)
	m.rejected++
}

func (m *fakeMetrics) RecordReuse(_ context.Context, registry string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.note(registry)
	m.reused++
}

func (m *fakeMetrics) RecordMismatch(_ context.Context, registry string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.note(registry)
	m.mismatched++
}

func (m *fakeMetrics) RecordConstruction(_ context.Context, registry string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.note(registry)
	m.constructed++
	if err != nil {
		m.constructErr++
	}
}

// fakeSpans records acquire span outcomes.
type fakeSpans struct {
	mu       sync.Mutex
	started  int
	outcomes []string
	errs     []error
	events   []string
}

func (s *fakeSpans) StartAcquireSpan(ctx context.Context, _ string, _ int, _ string) (context.Context, trace.Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return ctx, noop.Span{}
}

func (s *fakeSpans) EndSpanWithOutcome(_ trace.Span, outcome string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
	s.errs = append(s.errs, err)
}

func (s *fakeSpans) AddSpanEvent(_ context.Context, name string, _ ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
}
