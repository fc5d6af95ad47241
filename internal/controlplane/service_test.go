package controlplane

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rewindhq/rewind/internal/models"
	"github.com/rewindhq/rewind/internal/store"
)

// fakeRunner records run requests and returns a scripted outcome.
type fakeRunner struct {
	mu      sync.Mutex
	ran     []string
	outcome models.RunOutcome
	err     error
}

func (r *fakeRunner) RunTask(_ context.Context, taskID string) (*models.RunOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, taskID)
	if r.err != nil {
		return nil, r.err
	}
	out := r.outcome
	return &out, nil
}

func newTestService(t *testing.T) (*Service, *store.Store, *fakeRunner) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"), 0)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	runner := &fakeRunner{outcome: models.RunOutcome{Status: models.RunSuccess}}
	svc := NewService(s, runner, nil)
	t.Cleanup(func() {
		svc.Close()
		s.Close()
	})
	return svc, s, runner
}

const sampleRecording = `{
	"title": "Login flow",
	"steps": [
		{"type": "navigate", "url": "https://app.example/login"},
		{"type": "change", "selectors": [["#user"]], "value": "admin"},
		{"type": "click", "selectors": [["#submit"], ["aria/Sign in"]]}
	]
}`

func TestImportTask(t *testing.T) {
	svc, _, _ := newTestService(t)

	task, err := svc.ImportTask("", "", []byte(sampleRecording), models.PolicyContinue)
	if err != nil {
		t.Fatalf("ImportTask failed: %v", err)
	}

	if task.ID == "" {
		t.Error("expected assigned task ID")
	}
	if task.Name != "Login flow" {
		t.Errorf("expected name from recording title, got %q", task.Name)
	}
	if task.StartURL != "https://app.example/login" {
		t.Errorf("expected start URL from first navigate, got %q", task.StartURL)
	}
	if len(task.Steps) != 3 {
		t.Errorf("expected 3 steps, got %d", len(task.Steps))
	}
	if task.ErrorPolicy != models.PolicyContinue {
		t.Errorf("expected continue policy, got %s", task.ErrorPolicy)
	}

	// Round-trips through the store.
	got, err := svc.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Name != "Login flow" {
		t.Errorf("persisted task name mismatch: %q", got.Name)
	}
}

func TestImportTaskOverrides(t *testing.T) {
	svc, _, _ := newTestService(t)

	task, err := svc.ImportTask("My name", "https://other.example", []byte(sampleRecording), models.PolicyStop)
	if err != nil {
		t.Fatalf("ImportTask failed: %v", err)
	}
	if task.Name != "My name" {
		t.Errorf("explicit name must win, got %q", task.Name)
	}
	if task.StartURL != "https://other.example" {
		t.Errorf("explicit start URL must win, got %q", task.StartURL)
	}
}

func TestImportTaskInvalidRecording(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.ImportTask("", "", []byte(`{"steps": []}`), models.PolicyStop); err == nil {
		t.Fatal("expected validation error for empty recording")
	}
}

func TestGetTaskNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetTask("missing")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestUpdateTaskSchedule(t *testing.T) {
	svc, _, _ := newTestService(t)

	task, err := svc.ImportTask("sched", "", []byte(sampleRecording), models.PolicyStop)
	if err != nil {
		t.Fatal(err)
	}

	sched := models.Schedule{Enabled: true, TimeOfDay: "07:45", Days: []time.Weekday{time.Tuesday}}
	updated, err := svc.UpdateTask(task.ID, models.TaskUpdate{Schedule: &sched})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if !updated.Schedule.Enabled || updated.Schedule.TimeOfDay != "07:45" {
		t.Errorf("schedule not applied: %+v", updated.Schedule)
	}
}

func TestUpdateTaskRejectsInvalidSchedule(t *testing.T) {
	svc, _, _ := newTestService(t)

	task, err := svc.ImportTask("sched", "", []byte(sampleRecording), models.PolicyStop)
	if err != nil {
		t.Fatal(err)
	}

	sched := models.Schedule{Enabled: true, TimeOfDay: "25:99"}
	_, err = svc.UpdateTask(task.ID, models.TaskUpdate{Schedule: &sched})
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	name := "x"
	_, err := svc.UpdateTask("missing", models.TaskUpdate{Name: &name})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	svc, _, _ := newTestService(t)

	task, err := svc.ImportTask("doomed", "", []byte(sampleRecording), models.PolicyStop)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteTask(task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := svc.GetTask(task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected task gone, got %v", err)
	}
	if err := svc.DeleteTask(task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound on second delete, got %v", err)
	}
}

func TestRunTaskDispatchesToRunner(t *testing.T) {
	svc, _, runner := newTestService(t)

	task, err := svc.ImportTask("runnable", "", []byte(sampleRecording), models.PolicyStop)
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := svc.RunTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if outcome.Status != models.RunSuccess {
		t.Errorf("expected scripted success outcome, got %s", outcome.Status)
	}
	if len(runner.ran) != 1 || runner.ran[0] != task.ID {
		t.Errorf("expected runner invoked once for %s, got %v", task.ID, runner.ran)
	}
}

func TestResumeSchedulesArmsEnabledOnly(t *testing.T) {
	svc, s, _ := newTestService(t)

	enabled, err := svc.ImportTask("armed", "", []byte(sampleRecording), models.PolicyStop)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ImportTask("dormant", "", []byte(sampleRecording), models.PolicyStop); err != nil {
		t.Fatal(err)
	}

	sched := models.Schedule{Enabled: true, TimeOfDay: "23:59"}
	if err := s.UpdateTaskFields(enabled.ID, models.TaskUpdate{Schedule: &sched}); err != nil {
		t.Fatal(err)
	}

	if err := svc.ResumeSchedules(); err != nil {
		t.Fatalf("ResumeSchedules failed: %v", err)
	}
	// No assertion beyond not firing immediately: the armed timer targets
	// 23:59 and the dormant task has no timer at all.
}

func TestFireScheduledRespectsDayFilter(t *testing.T) {
	svc, s, runner := newTestService(t)

	task, err := svc.ImportTask("weekly", "", []byte(sampleRecording), models.PolicyStop)
	if err != nil {
		t.Fatal(err)
	}

	// A day set that can never include today.
	otherDay := (time.Now().Weekday() + 1) % 7
	sched := models.Schedule{Enabled: true, TimeOfDay: "00:00", Days: []time.Weekday{otherDay}}
	if err := s.UpdateTaskFields(task.ID, models.TaskUpdate{Schedule: &sched}); err != nil {
		t.Fatal(err)
	}

	svc.fireScheduled(task.ID)
	if len(runner.ran) != 0 {
		t.Errorf("fire on a filtered day must not run, got %v", runner.ran)
	}

	// Today allowed: the fire goes through.
	sched.Days = []time.Weekday{time.Now().Weekday()}
	if err := s.UpdateTaskFields(task.ID, models.TaskUpdate{Schedule: &sched}); err != nil {
		t.Fatal(err)
	}
	svc.fireScheduled(task.ID)
	if len(runner.ran) != 1 {
		t.Errorf("expected one run after allowed fire, got %v", runner.ran)
	}
}

func TestFireScheduledMissingTaskCancels(t *testing.T) {
	svc, _, runner := newTestService(t)

	svc.fireScheduled("gone")
	if len(runner.ran) != 0 {
		t.Errorf("missing task must not run, got %v", runner.ran)
	}
}
