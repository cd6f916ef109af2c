package diagnostics

import (
	"context"
	"sync"
	"time"

	"github.com/petermattis/goid"
	"github.com/reactant-go/reactant/pkg/reactant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "reactant"

// OTelConfig configures OpenTelemetry span emission for propagation passes.
type OTelConfig struct {
	// TracerName names the tracer (default: "reactant").
	TracerName string

	// SpanName names the span opened for each propagation pass.
	SpanName string

	// RecordSkips adds a reactant.effects_skipped attribute to each pass span.
	// Enabled by default.
	RecordSkips bool

	tracer trace.Tracer
}

// OTelOption configures an OTelObserver.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) { c.TracerName = name }
}

// WithSpanName sets the span name given to each propagation pass.
func WithSpanName(name string) OTelOption {
	return func(c *OTelConfig) { c.SpanName = name }
}

// WithRecordSkips toggles whether skipped-effect counts are attached to the
// pass span.
func WithRecordSkips(record bool) OTelOption {
	return func(c *OTelConfig) { c.RecordSkips = record }
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:  defaultTracerName,
		SpanName:    "reactant.propagate",
		RecordSkips: true,
	}
}

// OTelObserver implements reactant.Observer by opening one span per
// propagation pass and one event per effect run or skip within it.
//
// A single OTelObserver may be attached to several Runtimes, and a Runtime
// may drain concurrently with another Runtime sharing this observer, so the
// in-flight span for a pass is tracked per goroutine rather than in a
// single field.
type OTelObserver struct {
	config OTelConfig

	mu       sync.Mutex
	inFlight map[int64]trace.Span
}

// NewOTelObserver builds an OTelObserver using the global OpenTelemetry
// tracer provider, resolved at construction time the same way it would be
// resolved by a call to otel.Tracer at middleware-setup time.
func NewOTelObserver(opts ...OTelOption) *OTelObserver {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)
	return &OTelObserver{
		config:   config,
		inFlight: make(map[int64]trace.Span),
	}
}

func (o *OTelObserver) PassStarted() {
	// reactant.Observer carries no context.Context at this seam, so each
	// pass starts a root span rather than a child of some caller's trace.
	_, span := o.config.tracer.Start(context.Background(), o.config.SpanName,
		trace.WithSpanKind(trace.SpanKindInternal))

	gid := goid.Get()
	o.mu.Lock()
	o.inFlight[gid] = span
	o.mu.Unlock()
}

func (o *OTelObserver) PassEnded(stats reactant.PassStats) {
	span, ok := o.takeSpan()
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Int("reactant.effects_run", stats.EffectsRun),
	}
	if o.config.RecordSkips {
		attrs = append(attrs, attribute.Int("reactant.effects_skipped", stats.EffectsSkipped))
	}
	span.SetAttributes(attrs...)
	span.End(trace.WithTimestamp(time.Now()))
}

func (o *OTelObserver) EffectSkipped(id reactant.NodeID) {
	span, ok := o.activeSpan()
	if !ok {
		return
	}
	span.AddEvent("reactant.effect_skipped", trace.WithAttributes(
		attribute.Int64("reactant.node_id", int64(id)),
	))
}

func (o *OTelObserver) EffectRan(id reactant.NodeID, dur time.Duration, err error) {
	span, ok := o.activeSpan()
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Int64("reactant.node_id", int64(id)),
		attribute.Int64("reactant.duration_us", dur.Microseconds()),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("reactant.error", err.Error()))
	}
	span.AddEvent("reactant.effect_ran", trace.WithAttributes(attrs...))
}

func (o *OTelObserver) BudgetExceeded(id reactant.NodeID) {
	span, ok := o.activeSpan()
	if !ok {
		return
	}
	span.SetStatus(codes.Error, "runaway propagation")
	span.AddEvent("reactant.budget_exceeded", trace.WithAttributes(
		attribute.Int64("reactant.node_id", int64(id)),
	))
}

func (o *OTelObserver) activeSpan() (trace.Span, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	span, ok := o.inFlight[goid.Get()]
	return span, ok
}

func (o *OTelObserver) takeSpan() (trace.Span, bool) {
	gid := goid.Get()
	o.mu.Lock()
	defer o.mu.Unlock()
	span, ok := o.inFlight[gid]
	if ok {
		delete(o.inFlight, gid)
	}
	return span, ok
}

var _ reactant.Observer = (*OTelObserver)(nil)
