package feed

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/zerok-ai/zk-console-feed/config"
	"github.com/zerok-ai/zk-console-feed/metrics"
	"github.com/zerok-ai/zk-console-feed/model"
	logger "github.com/zerok-ai/zk-utils-go/logs"
)

var feedReconcilerLogTag = "FeedReconciler"
var podIp = os.Getenv("POD_IP")

// ActionLister is the slice of the gateway client the reconciler polls.
type ActionLister interface {
	ListActions(ctx context.Context, limit int) ([]model.ActionEvent, error)
}

// StreamView is the read-only view of the live stream the reconciler merges
// against.
type StreamView interface {
	Status() model.StreamStatus
	Events() []model.ActionEvent
}

// FeedReconciler merges the live stream buffer with a periodically polled
// historical snapshot into one deduplicated display list. Polling runs on a
// longer interval while the stream is healthy, since live push already
// covers near-real-time updates, and tightens when it is not.
type FeedReconciler struct {
	actions          ActionLister
	live             StreamView
	snapshotLimit    int
	displayLimit     int
	healthyInterval  time.Duration
	degradedInterval time.Duration

	mutex     sync.RWMutex
	snapshot  []model.ActionEvent
	lastError error
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewFeedReconciler(cfg config.FeedConfig, actions ActionLister, live StreamView) *FeedReconciler {
	healthySeconds := cfg.HealthyPollSeconds
	if healthySeconds < 1 {
		healthySeconds = 60
	}
	degradedSeconds := cfg.DegradedPollSeconds
	if degradedSeconds < 1 {
		degradedSeconds = 30
	}
	displayLimit := cfg.DisplayLimit
	if displayLimit < 1 {
		displayLimit = 30
	}
	return &FeedReconciler{
		actions:          actions,
		live:             live,
		snapshotLimit:    cfg.SnapshotLimit,
		displayLimit:     displayLimit,
		healthyInterval:  time.Duration(healthySeconds) * time.Second,
		degradedInterval: time.Duration(degradedSeconds) * time.Second,
	}
}

// Start polls the historical snapshot immediately, then keeps polling on the
// health-dependent interval until Stop. Idempotent.
func (r *FeedReconciler) Start() {
	r.mutex.Lock()
	if r.running {
		r.mutex.Unlock()
		return
	}
	r.running = true
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	done := make(chan struct{})
	r.done = done
	r.mutex.Unlock()

	go r.pollLoop(ctx, done)
}

// Stop cancels the poll loop and waits for it to exit. Idempotent.
func (r *FeedReconciler) Stop() {
	r.mutex.Lock()
	if !r.running {
		r.mutex.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mutex.Unlock()

	cancel()
	<-done
}

// Merged is the display list: live events first (most-recent-first already),
// then polled records, first occurrence per dedup key winning, truncated to
// the display limit. Recomputed on every call.
func (r *FeedReconciler) Merged() []model.ActionEvent {
	live := r.live.Events()
	r.mutex.RLock()
	polled := r.snapshot
	r.mutex.RUnlock()

	merged := make([]model.ActionEvent, 0, len(live)+len(polled))
	seen := make(map[string]struct{}, len(live)+len(polled))
	for _, event := range live {
		key := event.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, event)
	}
	for _, event := range polled {
		key := event.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, event)
	}
	if len(merged) > r.displayLimit {
		merged = merged[:r.displayLimit]
	}
	return merged
}

// LastError reports the most recent snapshot poll failure, nil after a
// successful poll. A failed poll never clears previously fetched data.
func (r *FeedReconciler) LastError() error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.lastError
}

func (r *FeedReconciler) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		r.pollOnce(ctx)

		timer := time.NewTimer(r.nextInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (r *FeedReconciler) nextInterval() time.Duration {
	if r.live.Status() == model.StreamConnected {
		return r.healthyInterval
	}
	return r.degradedInterval
}

func (r *FeedReconciler) pollOnce(ctx context.Context) {
	metrics.TotalFeedPolls.WithLabelValues(podIp).Inc()
	actions, err := r.actions.ListActions(ctx, r.snapshotLimit)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.TotalFeedPollErrors.WithLabelValues(podIp).Inc()
		logger.Error(feedReconcilerLogTag, "Historical snapshot poll failed: ", err)
		r.mutex.Lock()
		r.lastError = err
		r.mutex.Unlock()
		return
	}
	r.mutex.Lock()
	r.snapshot = actions
	r.lastError = nil
	r.mutex.Unlock()
}
