package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "assetbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	taskDuration    *prom.HistogramVec
	taskResults     *prom.CounterVec
	runDuration     prom.Histogram
	runOutcomes     *prom.CounterVec
	bundleDuration  *prom.HistogramVec
	modules         *prom.CounterVec
	bundleSize      prom.Gauge
	watchEvents     *prom.CounterVec
	reloadClients   prom.Gauge
	reloadBroadcast *prom.CounterVec
	reloadDropped   prom.Counter
}

// NewPrometheusRecorder constructs and registers the pipeline metrics on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of individual asset tasks",
			Buckets:   prom.DefBuckets,
		}, []string{"task"}),
		taskResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_results_total",
			Help:      "Task result counts by outcome",
		}, []string{"task", "result"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of orchestrator runs",
			Buckets:   prom.DefBuckets,
		}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Orchestrator runs by final status",
		}, []string{"result"}),
		bundleDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "bundle_duration_seconds",
			Help:      "Duration of incremental bundle runs",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		modules: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_modules_total",
			Help:      "Modules handled by the bundler, compiled or reused from cache",
		}, []string{"kind"}),
		bundleSize: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "bundle_size_bytes",
			Help:      "Size of the last written script bundle",
		}),
		watchEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "File system events seen by the watch loop",
		}, []string{"kind"}),
		reloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Connected live-reload clients",
		}),
		reloadBroadcast: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_broadcasts_total",
			Help:      "Live-reload messages broadcast by type",
		}, []string{"type"}),
		reloadDropped: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_dropped_clients_total",
			Help:      "Clients disconnected because their buffer was full",
		}),
	}
	reg.MustRegister(pr.taskDuration, pr.taskResults, pr.runDuration, pr.runOutcomes,
		pr.bundleDuration, pr.modules, pr.bundleSize, pr.watchEvents,
		pr.reloadClients, pr.reloadBroadcast, pr.reloadDropped)
	return pr
}

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	if p == nil {
		return
	}
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(task string, result ResultLabel) {
	if p == nil {
		return
	}
	p.taskResults.WithLabelValues(task, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(result ResultLabel) {
	if p == nil {
		return
	}
	p.runOutcomes.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBundleDuration(d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	p.bundleDuration.WithLabelValues(string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddModules(compiled, reused int) {
	if p == nil {
		return
	}
	p.modules.WithLabelValues("compiled").Add(float64(compiled))
	p.modules.WithLabelValues("reused").Add(float64(reused))
}

func (p *PrometheusRecorder) SetBundleSize(bytes int) {
	if p == nil {
		return
	}
	p.bundleSize.Set(float64(bytes))
}

func (p *PrometheusRecorder) IncWatchEvent(kind string) {
	if p == nil {
		return
	}
	p.watchEvents.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	if p == nil {
		return
	}
	p.reloadClients.Set(float64(n))
}

func (p *PrometheusRecorder) IncLiveReloadBroadcast(messageType string) {
	if p == nil {
		return
	}
	p.reloadBroadcast.WithLabelValues(messageType).Inc()
}

func (p *PrometheusRecorder) IncLiveReloadDropped() {
	if p == nil {
		return
	}
	p.reloadDropped.Inc()
}
