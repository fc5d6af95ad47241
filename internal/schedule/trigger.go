package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FireFunc is invoked at or after each trigger instant with the task ID.
type FireFunc func(taskID string)

// Trigger keeps one recurring timer per task. Scheduling a task that already
// has a timer replaces it; deleting a task must cancel its timer or the
// orphaned trigger keeps firing, which is a correctness bug.
type Trigger struct {
	fire   FireFunc
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// NewTrigger creates a trigger registry feeding the given fire callback.
func NewTrigger(fire FireFunc, logger *zap.Logger) *Trigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{
		fire:    fire,
		logger:  logger.Named("trigger"),
		entries: make(map[string]context.CancelFunc),
	}
}

// Schedule arms (or re-arms) the recurring timer for a task: first firing at
// `at`, then every `interval`.
func (t *Trigger) Schedule(taskID string, at time.Time, interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if cancel, ok := t.entries[taskID]; ok {
		cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.entries[taskID] = cancel

	t.logger.Info("trigger armed",
		zap.String("task_id", taskID),
		zap.Time("at", at),
		zap.Duration("interval", interval))

	t.wg.Add(1)
	go t.loop(ctx, taskID, at, interval)
}

// Cancel disarms the task's timer. Canceling an unknown task is a no-op.
func (t *Trigger) Cancel(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cancel, ok := t.entries[taskID]; ok {
		cancel()
		delete(t.entries, taskID)
		t.logger.Info("trigger canceled", zap.String("task_id", taskID))
	}
}

// Stop cancels every timer and waits for in-flight loops to exit.
func (t *Trigger) Stop() {
	t.mu.Lock()
	t.closed = true
	for id, cancel := range t.entries {
		cancel()
		delete(t.entries, id)
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Trigger) loop(ctx context.Context, taskID string, at time.Time, interval time.Duration) {
	defer t.wg.Done()

	timer := time.NewTimer(time.Until(at))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	t.fire(taskID)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.fire(taskID)
		}
	}
}
