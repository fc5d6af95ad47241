// Package coordinator orchestrates one task run end to end: page lifecycle,
// replay, logging, status update, and notification.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rewindhq/rewind/internal/models"
	"github.com/rewindhq/rewind/internal/replay"
)

// Sentinel errors for run-level failures; both are terminal for the run and
// surface as a failed outcome, never as an unhandled fault.
var (
	ErrNoStartURL   = errors.New("task has no start URL")
	ErrTaskNotFound = errors.New("task not found")
)

// PageSession is one open page: the replay channel plus lifecycle control.
type PageSession interface {
	replay.Page
	AwaitLoadComplete(ctx context.Context, timeout time.Duration) error
	Close() error
}

// Browser opens pages for task runs.
type Browser interface {
	OpenAndActivate(ctx context.Context, url string) (PageSession, error)
}

// Store is the persistence surface the coordinator needs.
type Store interface {
	GetTask(id string) (*models.Task, error)
	UpdateTaskFields(id string, u models.TaskUpdate) error
	AppendLog(entry *models.LogEntry) error
}

// Notifier delivers the per-run notification.
type Notifier interface {
	Notify(title, body string)
}

// Config carries the run timing knobs.
type Config struct {
	Replay          replay.Config
	PageLoadTimeout time.Duration
}

// DefaultConfig returns stock coordinator timing.
func DefaultConfig() Config {
	return Config{
		Replay:          replay.DefaultConfig(),
		PageLoadTimeout: 30 * time.Second,
	}
}

// Coordinator runs tasks. It holds no per-run state; everything a run needs
// is loaded from the store at invocation time.
type Coordinator struct {
	store    Store
	browser  Browser
	notifier Notifier
	cfg      Config
	logger   *zap.Logger
}

// New creates a coordinator.
func New(store Store, browser Browser, notifier Notifier, cfg Config, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = 30 * time.Second
	}
	return &Coordinator{
		store:    store,
		browser:  browser,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.Named("coordinator"),
	}
}

// RunTask executes one task and records exactly one log entry and task
// status update for it. Failures before the runner starts (missing URL, page
// load timeout, transport errors) are synthesized into a failed outcome so
// downstream logging is uniform regardless of failure stage.
func (c *Coordinator) RunTask(ctx context.Context, taskID string) (*models.RunOutcome, error) {
	task, err := c.store.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	c.logger.Info("run started",
		zap.String("task_id", task.ID),
		zap.String("task_name", task.Name),
		zap.Int("steps", len(task.Steps)))

	outcome := c.execute(ctx, task)
	c.record(task, outcome)

	c.logger.Info("run finished",
		zap.String("task_id", task.ID),
		zap.String("status", string(outcome.Status)),
		zap.Int("completed", outcome.CompletedSteps),
		zap.Int("total", outcome.TotalSteps))
	return &outcome, nil
}

func (c *Coordinator) execute(ctx context.Context, task *models.Task) models.RunOutcome {
	startURL := task.StartURL
	if startURL == "" {
		startURL = task.FirstNavigateURL()
	}
	if startURL == "" {
		return failedOutcome(task, ErrNoStartURL.Error())
	}

	page, err := c.browser.OpenAndActivate(ctx, startURL)
	if err != nil {
		return failedOutcome(task, fmt.Sprintf("open page: %v", err))
	}
	defer page.Close()

	if err := page.AwaitLoadComplete(ctx, c.cfg.PageLoadTimeout); err != nil {
		return failedOutcome(task, fmt.Sprintf("page load: %v", err))
	}

	interp := replay.NewInterpreter(page, c.cfg.Replay, c.logger)
	runner := replay.NewRunner(interp, c.cfg.Replay.StepDelay, c.logger)
	return runner.Run(ctx, task.Steps, task.ErrorPolicy)
}

// record forwards the outcome to logging and status update, then notifies.
// Notification covers success and failed only; partial runs stay silent.
func (c *Coordinator) record(task *models.Task, outcome models.RunOutcome) {
	now := time.Now().UTC()
	entry := &models.LogEntry{
		TaskID:         task.ID,
		TaskName:       task.Name,
		Status:         outcome.Status,
		CompletedSteps: outcome.CompletedSteps,
		TotalSteps:     outcome.TotalSteps,
		DurationMs:     outcome.DurationMs,
		Message:        outcome.Message,
		ExecutedAt:     now,
	}
	if err := c.store.AppendLog(entry); err != nil {
		c.logger.Error("append run log failed", zap.String("task_id", task.ID), zap.Error(err))
	}

	status := outcome.Status
	if err := c.store.UpdateTaskFields(task.ID, models.TaskUpdate{
		LastExecutedAt: &now,
		LastStatus:     &status,
	}); err != nil {
		c.logger.Error("task status update failed", zap.String("task_id", task.ID), zap.Error(err))
	}

	if c.notifier == nil {
		return
	}
	switch outcome.Status {
	case models.RunSuccess:
		c.notifier.Notify(task.Name, fmt.Sprintf("Run completed: %d/%d steps", outcome.CompletedSteps, outcome.TotalSteps))
	case models.RunFailed:
		c.notifier.Notify(task.Name, fmt.Sprintf("Run failed: %s", outcome.Message))
	}
}

func failedOutcome(task *models.Task, message string) models.RunOutcome {
	return models.RunOutcome{
		Status:     models.RunFailed,
		TotalSteps: len(task.Steps),
		Message:    message,
	}
}
