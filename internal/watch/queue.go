package watch

import (
	"context"
	"sync"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/events"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// BundleQueueConfig configures a BundleQueue.
type BundleQueueConfig struct {
	QuietWindow time.Duration
	MaxDelay    time.Duration
}

// BundleQueue coalesces bursts of BundleRequested events into a single
// BundleNow:
//   - quiet window debounce
//   - max delay (cannot postpone indefinitely)
//   - while a bundle runs, requests collapse into exactly one follow-up,
//     emitted when BundleCompleted arrives
//
// It is safe to run as a single goroutine.
type BundleQueue struct {
	bus *events.Bus
	cfg BundleQueueConfig

	mu        sync.Mutex
	readyOnce sync.Once
	ready     chan struct{}

	pending         bool
	pendingAfterRun bool
	running         bool
	firstRequestAt  time.Time
	lastRequestAt   time.Time
	lastPath        string
	requestCount    int
}

func NewBundleQueue(bus *events.Bus, cfg BundleQueueConfig) (*BundleQueue, error) {
	if bus == nil {
		return nil, ferrors.ValidationError("bus is required").Build()
	}
	if cfg.QuietWindow <= 0 {
		return nil, ferrors.ValidationError("quiet window must be > 0").Build()
	}
	if cfg.MaxDelay <= 0 {
		return nil, ferrors.ValidationError("max delay must be > 0").Build()
	}
	return &BundleQueue{bus: bus, cfg: cfg, ready: make(chan struct{})}, nil
}

// Ready is closed once Run has subscribed to events.
func (q *BundleQueue) Ready() <-chan struct{} {
	return q.ready
}

// Running reports whether a bundle emitted by the queue has not completed yet.
func (q *BundleQueue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

func (q *BundleQueue) Run(ctx context.Context) error {
	if ctx == nil {
		return ferrors.ValidationError("context cannot be nil").Build()
	}

	reqCh, unsubReq := events.Subscribe[events.BundleRequested](q.bus, 64)
	defer unsubReq()
	doneCh, unsubDone := events.Subscribe[events.BundleCompleted](q.bus, 8)
	defer unsubDone()

	q.readyOnce.Do(func() { close(q.ready) })

	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()
	var (
		quietC <-chan time.Time
		maxC   <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-reqCh:
			if !ok {
				return nil
			}
			if q.onRequest(req) {
				resetTimer(maxTimer, q.cfg.MaxDelay)
				maxC = maxTimer.C
			}
			resetTimer(quietTimer, q.cfg.QuietWindow)
			quietC = quietTimer.C

		case <-quietC:
			quietC, maxC = nil, nil
			q.tryEmit(ctx, "quiet")

		case <-maxC:
			quietC, maxC = nil, nil
			q.tryEmit(ctx, "max_delay")

		case _, ok := <-doneCh:
			if !ok {
				return nil
			}
			if q.onCompleted() {
				quietC, maxC = nil, nil
				q.tryEmit(ctx, "after_running")
			}
		}
	}
}

// onRequest records a request and reports whether it opened a new batch.
func (q *BundleQueue) onRequest(req events.BundleRequested) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := req.RequestedAt
	if now.IsZero() {
		now = time.Now()
	}

	opened := !q.pending
	if opened {
		q.pending = true
		q.firstRequestAt = now
		q.requestCount = 0
	}
	q.lastRequestAt = now
	q.lastPath = req.Path
	q.requestCount++
	return opened
}

// onCompleted clears the running flag and reports whether a follow-up is due.
func (q *BundleQueue) onCompleted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.running = false
	return q.pendingAfterRun
}

func (q *BundleQueue) tryEmit(ctx context.Context, cause string) {
	q.mu.Lock()
	if !q.pending {
		q.mu.Unlock()
		return
	}
	if q.running {
		q.pendingAfterRun = true
		q.mu.Unlock()
		return
	}

	evt := events.BundleNow{
		TriggeredAt:  time.Now(),
		RequestCount: q.requestCount,
		LastPath:     q.lastPath,
		FirstRequest: q.firstRequestAt,
		LastRequest:  q.lastRequestAt,
		Cause:        cause,
	}
	q.pending = false
	q.pendingAfterRun = false
	q.running = true
	q.mu.Unlock()

	if err := q.bus.Publish(ctx, evt); err != nil {
		q.mu.Lock()
		q.running = false
		q.mu.Unlock()
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
