// Package events defines the in-process control-flow events exchanged by
// the pipeline stages, and the typed bus that carries them.
package events

import "time"

// BundleRequested is published by the watch loop when a script changed.
// The bundle queue coalesces bursts of these into BundleNow.
type BundleRequested struct {
	Path        string
	RequestedAt time.Time
}

// BundleNow is emitted by the BundleQueue once it decides to start a bundle.
type BundleNow struct {
	TriggeredAt  time.Time
	RequestCount int
	LastPath     string
	FirstRequest time.Time
	LastRequest  time.Time
	Cause        string // "quiet", "max_delay" or "after_running"
}

// TasksRequested asks the pipeline to run exactly the named tasks,
// without dependency expansion.
type TasksRequested struct {
	Tasks       []string
	Paths       []string
	FileSet     string
	RequestedAt time.Time
}

// ArtifactsUpdated is published after output files were replaced.
// Paths are slash paths relative to the output directory.
type ArtifactsUpdated struct {
	Paths     []string
	Source    string // task name or "bundle"
	UpdatedAt time.Time
}

// BuildFailed is published when a triggered rebuild fails. The previous
// artifacts stay in place. The pipeline records failures itself; this
// event is for observers such as tests and embedding programs, and
// nothing in the watch loop waits for it.
type BuildFailed struct {
	Source   string
	Err      error
	FailedAt time.Time
}

// BundleCompleted reports the outcome of one bundle run to the queue.
type BundleCompleted struct {
	Err         error
	CompletedAt time.Time
}
