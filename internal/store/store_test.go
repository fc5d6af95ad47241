package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rewindhq/rewind/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"), 0)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTask(name string) *models.Task {
	return &models.Task{
		Name:     name,
		StartURL: "https://example.com",
		Steps: []models.Step{
			{Index: 0, Kind: models.StepNavigate, URL: "https://example.com"},
			{Index: 1, Kind: models.StepClick, Selectors: [][]string{{"#go"}, {"xpath///button"}}},
		},
		ErrorPolicy: models.PolicyStop,
	}
}

func TestSaveAndGetTask(t *testing.T) {
	s := newTestStore(t)

	task := sampleTask("Order check")
	if err := s.SaveTask(task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected an assigned ID")
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected task, got nil")
	}
	if got.Name != "Order check" {
		t.Errorf("expected name 'Order check', got %q", got.Name)
	}
	if len(got.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(got.Steps))
	}
	if got.Steps[1].Selectors[1][0] != "xpath///button" {
		t.Errorf("selector groups did not round-trip: %v", got.Steps[1].Selectors)
	}
	if got.ErrorPolicy != models.PolicyStop {
		t.Errorf("expected stop policy, got %s", got.ErrorPolicy)
	}
}

func TestGetTaskAbsent(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetTask("no-such-id")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing task, got %+v", got)
	}
}

func TestSaveTaskDefaultsPolicy(t *testing.T) {
	s := newTestStore(t)

	task := sampleTask("defaults")
	task.ErrorPolicy = ""
	if err := s.SaveTask(task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	got, _ := s.GetTask(task.ID)
	if got.ErrorPolicy != models.PolicyStop {
		t.Errorf("expected default stop policy, got %s", got.ErrorPolicy)
	}
}

func TestListTasks(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.SaveTask(sampleTask(fmt.Sprintf("task-%d", i))); err != nil {
			t.Fatalf("SaveTask failed: %v", err)
		}
	}

	tasks, err := s.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Errorf("expected 3 tasks, got %d", len(tasks))
	}
}

func TestUpdateTaskFields(t *testing.T) {
	s := newTestStore(t)

	task := sampleTask("before")
	if err := s.SaveTask(task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	name := "after"
	policy := models.PolicyContinue
	sched := models.Schedule{Enabled: true, TimeOfDay: "09:30", Days: []time.Weekday{time.Monday}}
	err := s.UpdateTaskFields(task.ID, models.TaskUpdate{
		Name:        &name,
		ErrorPolicy: &policy,
		Schedule:    &sched,
	})
	if err != nil {
		t.Fatalf("UpdateTaskFields failed: %v", err)
	}

	got, _ := s.GetTask(task.ID)
	if got.Name != "after" {
		t.Errorf("expected renamed task, got %q", got.Name)
	}
	if got.ErrorPolicy != models.PolicyContinue {
		t.Errorf("expected continue policy, got %s", got.ErrorPolicy)
	}
	if !got.Schedule.Enabled || got.Schedule.TimeOfDay != "09:30" {
		t.Errorf("schedule did not persist: %+v", got.Schedule)
	}
	if len(got.Schedule.Days) != 1 || got.Schedule.Days[0] != time.Monday {
		t.Errorf("schedule days did not round-trip: %v", got.Schedule.Days)
	}
	// Untouched fields survive a partial update.
	if got.StartURL != "https://example.com" {
		t.Errorf("partial update clobbered start URL: %q", got.StartURL)
	}
}

func TestUpdateTaskFieldsRunStatus(t *testing.T) {
	s := newTestStore(t)

	task := sampleTask("status")
	if err := s.SaveTask(task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	when := time.Now().UTC().Truncate(time.Second)
	status := models.RunSuccess
	err := s.UpdateTaskFields(task.ID, models.TaskUpdate{
		LastExecutedAt: &when,
		LastStatus:     &status,
	})
	if err != nil {
		t.Fatalf("UpdateTaskFields failed: %v", err)
	}

	got, _ := s.GetTask(task.ID)
	if got.LastExecutedAt == nil || !got.LastExecutedAt.Equal(when) {
		t.Errorf("expected last executed %s, got %v", when, got.LastExecutedAt)
	}
	if got.LastStatus != models.RunSuccess {
		t.Errorf("expected success status, got %s", got.LastStatus)
	}
}

func TestUpdateTaskFieldsNotFound(t *testing.T) {
	s := newTestStore(t)

	name := "x"
	err := s.UpdateTaskFields("missing", models.TaskUpdate{Name: &name})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestDeleteTaskRemovesLogs(t *testing.T) {
	s := newTestStore(t)

	task := sampleTask("doomed")
	if err := s.SaveTask(task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}
	if err := s.AppendLog(&models.LogEntry{
		TaskID: task.ID, TaskName: task.Name, Status: models.RunSuccess,
		CompletedSteps: 2, TotalSteps: 2,
	}); err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}

	if err := s.DeleteTask(task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}

	if got, _ := s.GetTask(task.ID); got != nil {
		t.Error("expected task deleted")
	}
	logs, _ := s.GetLogs(task.ID, 0)
	if len(logs) != 0 {
		t.Errorf("expected logs deleted with task, got %d", len(logs))
	}
}

func TestDeleteTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeleteTask("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestAppendLogTrimsOldest(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "trim.db"), 5)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	task := sampleTask("chatty")
	if err := s.SaveTask(task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		err := s.AppendLog(&models.LogEntry{
			TaskID:     task.ID,
			TaskName:   task.Name,
			Status:     models.RunSuccess,
			Message:    fmt.Sprintf("run %d", i),
			ExecutedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AppendLog %d failed: %v", i, err)
		}
	}

	logs, err := s.GetLogs("", 0)
	if err != nil {
		t.Fatalf("GetLogs failed: %v", err)
	}
	if len(logs) != 5 {
		t.Fatalf("expected cap of 5 entries, got %d", len(logs))
	}
	// Newest first; the oldest three runs were dropped.
	if logs[0].Message != "run 7" {
		t.Errorf("expected newest entry first, got %q", logs[0].Message)
	}
	if logs[len(logs)-1].Message != "run 3" {
		t.Errorf("expected oldest retained entry to be run 3, got %q", logs[len(logs)-1].Message)
	}
}

func TestGetLogsFilterAndLimit(t *testing.T) {
	s := newTestStore(t)

	a := sampleTask("a")
	b := sampleTask("b")
	if err := s.SaveTask(a); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTask(b); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		s.AppendLog(&models.LogEntry{TaskID: a.ID, TaskName: a.Name, Status: models.RunSuccess})
		s.AppendLog(&models.LogEntry{TaskID: b.ID, TaskName: b.Name, Status: models.RunFailed})
	}

	aLogs, err := s.GetLogs(a.ID, 0)
	if err != nil {
		t.Fatalf("GetLogs failed: %v", err)
	}
	if len(aLogs) != 3 {
		t.Errorf("expected 3 entries for task a, got %d", len(aLogs))
	}
	for _, e := range aLogs {
		if e.TaskID != a.ID {
			t.Errorf("filter leaked entry for task %s", e.TaskID)
		}
	}

	limited, err := s.GetLogs("", 2)
	if err != nil {
		t.Fatalf("GetLogs failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected limit of 2, got %d", len(limited))
	}
}
