package diagnostics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/reactant-go/reactant/pkg/reactant"
)

// PromConfig configures the Prometheus metrics an observer exports.
type PromConfig struct {
	// Namespace is the metrics namespace (default: "reactant").
	Namespace string
	// Subsystem is the metrics subsystem (default: "").
	Subsystem string
	// ConstLabels are constant labels added to every metric.
	ConstLabels prometheus.Labels
	// Buckets are the histogram buckets for pass duration.
	Buckets []float64
	// Registry is the registerer new metrics are registered against.
	Registry prometheus.Registerer
}

// PromOption configures a PromObserver.
type PromOption func(*PromConfig)

func WithNamespace(ns string) PromOption {
	return func(c *PromConfig) { c.Namespace = ns }
}

func WithSubsystem(ss string) PromOption {
	return func(c *PromConfig) { c.Subsystem = ss }
}

func WithConstLabels(labels prometheus.Labels) PromOption {
	return func(c *PromConfig) { c.ConstLabels = labels }
}

func WithBuckets(buckets []float64) PromOption {
	return func(c *PromConfig) { c.Buckets = buckets }
}

func WithRegistry(registry prometheus.Registerer) PromOption {
	return func(c *PromConfig) { c.Registry = registry }
}

func defaultPromConfig() PromConfig {
	return PromConfig{
		Namespace: "reactant",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// PromObserver implements reactant.Observer by exporting counters for
// propagation passes and effect outcomes, a histogram for pass duration,
// and a gauge a caller can wire to Runtime.Stats for live node count.
type PromObserver struct {
	passesTotal    prometheus.Counter
	passDuration   prometheus.Histogram
	effectsRun     prometheus.Counter
	effectsSkipped prometheus.Counter
	runawayTotal   *prometheus.CounterVec
	liveNodes      prometheus.Gauge

	lastPassStart time.Time
}

// NewPromObserver registers reactant's metrics against config.Registry (or
// the default global registerer) and returns an Observer exporting them.
func NewPromObserver(opts ...PromOption) *PromObserver {
	config := defaultPromConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &PromObserver{
		passesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "propagation_passes_total",
			Help:        "Total number of propagation passes drained.",
			ConstLabels: config.ConstLabels,
		}),
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_duration_seconds",
			Help:        "Duration of a propagation pass from Drain start to Reclaim finish.",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		effectsRun: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effects_run_total",
			Help:        "Total number of effect run_fn invocations.",
			ConstLabels: config.ConstLabels,
		}),
		effectsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effects_skipped_total",
			Help:        "Total number of pending effects reconciled with no changed source.",
			ConstLabels: config.ConstLabels,
		}),
		runawayTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "runaway_propagation_total",
			Help:        "Total number of propagation passes aborted by the effect-execution budget.",
			ConstLabels: config.ConstLabels,
		}, []string{"node"}),
		liveNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_nodes",
			Help:        "Number of nodes currently registered with the runtime.",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (p *PromObserver) PassStarted() {
	p.lastPassStart = time.Now()
}

func (p *PromObserver) PassEnded(stats reactant.PassStats) {
	p.passesTotal.Inc()
	p.passDuration.Observe(stats.Duration.Seconds())
	p.effectsRun.Add(float64(stats.EffectsRun))
	p.effectsSkipped.Add(float64(stats.EffectsSkipped))
}

func (p *PromObserver) EffectSkipped(reactant.NodeID) {}

func (p *PromObserver) EffectRan(reactant.NodeID, time.Duration, error) {}

func (p *PromObserver) BudgetExceeded(id reactant.NodeID) {
	p.runawayTotal.WithLabelValues(nodeLabel(id)).Inc()
}

// SetLiveNodes updates the live-node gauge. A caller typically polls
// Runtime.Stats().Nodes on an interval and feeds the result here, since
// reactant.Observer has no periodic-sampling hook of its own.
func (p *PromObserver) SetLiveNodes(n int) {
	p.liveNodes.Set(float64(n))
}

func nodeLabel(id reactant.NodeID) string {
	return strconv.FormatUint(uint64(id), 10)
}

var _ reactant.Observer = (*PromObserver)(nil)
