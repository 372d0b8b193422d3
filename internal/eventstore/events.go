package eventstore

import (
	"encoding/json"
	"time"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Event type names.
const (
	TypeRunStarted   = "RunStarted"
	TypeTaskFinished = "TaskFinished"
	TypeRunCompleted = "RunCompleted"
	TypeRunFailed    = "RunFailed"
	TypeBundleBuilt  = "BundleBuilt"
	TypeBundleFailed = "BundleFailed"
)

// RunStartedPayload is the payload of TypeRunStarted.
type RunStartedPayload struct {
	Targets []string `json:"targets"`
	Trigger string   `json:"trigger"` // "build", "watch" or the changed file set
}

// TaskFinishedPayload is the payload of TypeTaskFinished.
type TaskFinishedPayload struct {
	Task       string   `json:"task"`
	DurationMS int64    `json:"duration_ms"`
	Written    []string `json:"written,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// RunFinishedPayload is the payload of TypeRunCompleted and TypeRunFailed.
type RunFinishedPayload struct {
	DurationMS int64    `json:"duration_ms"`
	Executed   []string `json:"executed"`
	Written    int      `json:"written"`
	Error      string   `json:"error,omitempty"`
	Category   string   `json:"category,omitempty"`
}

// BundlePayload is the payload of TypeBundleBuilt and TypeBundleFailed.
type BundlePayload struct {
	DurationMS int64    `json:"duration_ms"`
	Compiled   []string `json:"compiled,omitempty"`
	Reused     []string `json:"reused,omitempty"`
	Size       int      `json:"size,omitempty"`
	Module     string   `json:"module,omitempty"`
	Error      string   `json:"error,omitempty"`
	Category   string   `json:"category,omitempty"`
}

// NewEvent marshals payload into an event of the given type.
func NewEvent(runID, eventType string, payload any) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "marshal event payload").
			WithContext("run_id", runID).
			WithContext("event_type", eventType).
			Build()
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
	}, nil
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID string, p RunStartedPayload) (*BaseEvent, error) {
	return NewEvent(runID, TypeRunStarted, p)
}

// NewTaskFinished creates a TaskFinished event.
func NewTaskFinished(runID string, p TaskFinishedPayload) (*BaseEvent, error) {
	return NewEvent(runID, TypeTaskFinished, p)
}

// NewRunFinished creates a RunCompleted event, or RunFailed when p.Error is set.
func NewRunFinished(runID string, p RunFinishedPayload) (*BaseEvent, error) {
	if p.Error != "" {
		return NewEvent(runID, TypeRunFailed, p)
	}
	return NewEvent(runID, TypeRunCompleted, p)
}

// NewBundleFinished creates a BundleBuilt event, or BundleFailed when p.Error is set.
func NewBundleFinished(runID string, p BundlePayload) (*BaseEvent, error) {
	if p.Error != "" {
		return NewEvent(runID, TypeBundleFailed, p)
	}
	return NewEvent(runID, TypeBundleBuilt, p)
}

// DecodePayload unmarshals the payload of e into T.
func DecodePayload[T any](e Event) (T, error) {
	var out T
	if err := json.Unmarshal(e.Payload(), &out); err != nil {
		return out, ferrors.WrapError(err, ferrors.CategoryEventStore, "unmarshal event payload").
			WithContext("event_type", e.Type()).
			WithContext("id", e.ID()).
			Build()
	}
	return out, nil
}
