// Package controlplane provides the HTTP API and service layer for Rewind.
package controlplane

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rewindhq/rewind/internal/models"
	"github.com/rewindhq/rewind/internal/recording"
	"github.com/rewindhq/rewind/internal/schedule"
	"github.com/rewindhq/rewind/internal/store"
)

// Runner executes one task and returns its outcome. The coordinator
// satisfies this in production.
type Runner interface {
	RunTask(ctx context.Context, taskID string) (*models.RunOutcome, error)
}

// Service provides the control plane business logic: task lifecycle,
// run dispatch, and schedule ownership.
type Service struct {
	store   *store.Store
	runner  Runner
	trigger *schedule.Trigger
	logger  *zap.Logger
}

// NewService creates a new control plane service. The service owns the
// schedule trigger; Close releases it.
func NewService(s *store.Store, runner Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		store:  s,
		runner: runner,
		logger: logger.Named("controlplane"),
	}
	svc.trigger = schedule.NewTrigger(svc.fireScheduled, logger)
	return svc
}

// Close stops all schedule timers and waits for in-flight fires to settle.
func (s *Service) Close() {
	s.trigger.Stop()
}

// --- Task Operations ---

// ImportTask normalizes a raw recording into a task and persists it.
// The task name falls back to the recording title, then a placeholder.
// An explicit start URL overrides the one derived from the recording.
func (s *Service) ImportTask(name, startURL string, raw []byte, policy models.ErrorPolicy) (*models.Task, error) {
	doc, err := recording.Normalize(raw)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = doc.Title
	}
	if name == "" {
		name = "Imported task"
	}
	if startURL == "" {
		startURL = doc.StartURL
	}

	task := &models.Task{
		Name:        name,
		StartURL:    startURL,
		Steps:       doc.Steps,
		ErrorPolicy: policy,
	}
	if err := s.store.SaveTask(task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	s.logger.Info("task imported",
		zap.String("task_id", task.ID),
		zap.String("name", task.Name),
		zap.Int("steps", len(task.Steps)))
	return task, nil
}

// GetTask retrieves a task by ID.
func (s *Service) GetTask(id string) (*models.Task, error) {
	task, err := s.store.GetTask(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// ListTasks returns all tasks, newest first.
func (s *Service) ListTasks() ([]models.Task, error) {
	return s.store.ListTasks()
}

// UpdateTask applies a partial update and returns the updated task. A
// schedule change re-arms or cancels the task's timer.
func (s *Service) UpdateTask(id string, u models.TaskUpdate) (*models.Task, error) {
	if u.Schedule != nil && u.Schedule.Enabled {
		if _, err := schedule.NextTrigger(*u.Schedule, time.Now()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}

	if err := s.store.UpdateTaskFields(id, u); err != nil {
		if err == store.ErrTaskNotFound {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}
	if u.Schedule != nil {
		s.armSchedule(task)
	}
	return task, nil
}

// DeleteTask removes a task, its run logs, and any pending timer.
func (s *Service) DeleteTask(id string) error {
	s.trigger.Cancel(id)
	if err := s.store.DeleteTask(id); err != nil {
		if err == store.ErrTaskNotFound {
			return ErrTaskNotFound
		}
		return err
	}
	s.logger.Info("task deleted", zap.String("task_id", id))
	return nil
}

// RunTask executes a task immediately and returns the run outcome.
func (s *Service) RunTask(ctx context.Context, id string) (*models.RunOutcome, error) {
	outcome, err := s.runner.RunTask(ctx, id)
	if err != nil {
		if task, lookupErr := s.store.GetTask(id); lookupErr == nil && task == nil {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return outcome, nil
}

// GetLogs returns run history, newest first. An empty taskID selects logs
// across all tasks.
func (s *Service) GetLogs(taskID string, limit int) ([]models.LogEntry, error) {
	return s.store.GetLogs(taskID, limit)
}

// --- Scheduling ---

// ResumeSchedules re-arms timers for every enabled schedule. Called once at
// daemon start so schedules survive restarts.
func (s *Service) ResumeSchedules() error {
	tasks, err := s.store.ListTasks()
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	armed := 0
	for i := range tasks {
		if s.armSchedule(&tasks[i]) {
			armed++
		}
	}
	s.logger.Info("schedules resumed", zap.Int("armed", armed), zap.Int("tasks", len(tasks)))
	return nil
}

// armSchedule installs or clears the timer for one task and reports whether
// a timer is now pending.
func (s *Service) armSchedule(task *models.Task) bool {
	next, err := schedule.NextTrigger(task.Schedule, time.Now())
	if err != nil {
		s.trigger.Cancel(task.ID)
		if err != schedule.ErrDisabled {
			s.logger.Warn("schedule not armed",
				zap.String("task_id", task.ID), zap.Error(err))
		}
		return false
	}
	s.trigger.Schedule(task.ID, next.At, next.Interval)
	s.logger.Debug("schedule armed",
		zap.String("task_id", task.ID), zap.Time("next", next.At))
	return true
}

// fireScheduled handles a timer firing. The day-of-week filter is applied
// here, at fire time, so the timer itself stays a plain daily cadence.
func (s *Service) fireScheduled(taskID string) {
	task, err := s.store.GetTask(taskID)
	if err != nil || task == nil {
		s.trigger.Cancel(taskID)
		s.logger.Warn("scheduled task missing, timer cancelled", zap.String("task_id", taskID))
		return
	}
	if !task.Schedule.Enabled {
		s.trigger.Cancel(taskID)
		return
	}
	if !task.Schedule.FiresOn(time.Now().Weekday()) {
		s.logger.Debug("schedule skipped for today", zap.String("task_id", taskID))
		return
	}

	s.logger.Info("scheduled run firing", zap.String("task_id", taskID))
	if _, err := s.runner.RunTask(context.Background(), taskID); err != nil {
		s.logger.Error("scheduled run failed", zap.String("task_id", taskID), zap.Error(err))
	}
}
