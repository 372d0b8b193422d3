package metrics

import "time"

// ResultLabel enumerates task and run result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for the pipeline. Implementations
// forward to Prometheus; NoopRecorder is the default.
type Recorder interface {
	ObserveTaskDuration(task string, d time.Duration)
	IncTaskResult(task string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(result ResultLabel)

	ObserveBundleDuration(d time.Duration, result ResultLabel)
	AddModules(compiled, reused int)
	SetBundleSize(bytes int)

	IncWatchEvent(kind string)

	SetLiveReloadClients(n int)
	IncLiveReloadBroadcast(messageType string)
	IncLiveReloadDropped()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration)        {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)                {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                 {}
func (NoopRecorder) IncRunOutcome(ResultLabel)                        {}
func (NoopRecorder) ObserveBundleDuration(time.Duration, ResultLabel) {}
func (NoopRecorder) AddModules(int, int)                              {}
func (NoopRecorder) SetBundleSize(int)                                {}
func (NoopRecorder) IncWatchEvent(string)                             {}
func (NoopRecorder) SetLiveReloadClients(int)                         {}
func (NoopRecorder) IncLiveReloadBroadcast(string)                    {}
func (NoopRecorder) IncLiveReloadDropped()                            {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
