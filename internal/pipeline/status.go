package pipeline

import (
	"sync"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/server"
)

// statusTracker remembers the most recent build outcome for /status.
type statusTracker struct {
	mu   sync.RWMutex
	last server.BuildStatus
}

func (s *statusTracker) record(source string, err error) {
	s.mu.Lock()
	s.last = server.BuildStatus{Source: source, At: time.Now(), Err: err}
	s.mu.Unlock()
}

// LastBuild implements server.StatusProvider.
func (s *statusTracker) LastBuild() server.BuildStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
