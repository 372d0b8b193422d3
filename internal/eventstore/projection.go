package eventstore

import (
	"sort"
	"time"
)

const (
	statusRunning   = "running"
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// RunSummary is a read model of one orchestration run or bundle.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Kind      string        `json:"kind"` // "run" or "bundle"
	Status    string        `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Targets   []string      `json:"targets,omitempty"`
	Tasks     int           `json:"tasks"`
	Written   int           `json:"written"`
	Error     string        `json:"error,omitempty"`
}

// Summarize folds events into one summary per run ID, newest first.
// Events with an undecodable payload only contribute their type.
func Summarize(events []Event) []RunSummary {
	byRun := make(map[string]*RunSummary)
	ordered := make([]Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID() < ordered[j].ID() })

	for _, e := range ordered {
		s, ok := byRun[e.RunID()]
		if !ok {
			s = &RunSummary{RunID: e.RunID(), Kind: "run", Status: statusRunning, StartedAt: e.Timestamp()}
			byRun[e.RunID()] = s
		}
		apply(s, e)
	}

	out := make([]RunSummary, 0, len(byRun))
	for _, s := range byRun {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID > out[j].RunID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

func apply(s *RunSummary, e Event) {
	switch e.Type() {
	case TypeRunStarted:
		if p, err := DecodePayload[RunStartedPayload](e); err == nil {
			s.Targets = p.Targets
		}
	case TypeTaskFinished:
		s.Tasks++
		if p, err := DecodePayload[TaskFinishedPayload](e); err == nil {
			s.Written += len(p.Written)
		}
	case TypeRunCompleted, TypeRunFailed:
		s.Status = statusCompleted
		if e.Type() == TypeRunFailed {
			s.Status = statusFailed
		}
		if p, err := DecodePayload[RunFinishedPayload](e); err == nil {
			s.Duration = time.Duration(p.DurationMS) * time.Millisecond
			s.Error = p.Error
		}
	case TypeBundleBuilt, TypeBundleFailed:
		s.Kind = "bundle"
		s.Status = statusCompleted
		if e.Type() == TypeBundleFailed {
			s.Status = statusFailed
		}
		if p, err := DecodePayload[BundlePayload](e); err == nil {
			s.Duration = time.Duration(p.DurationMS) * time.Millisecond
			s.Tasks = len(p.Compiled)
			if p.Error == "" {
				s.Written = 1
			}
			s.Error = p.Error
		}
	}
}
