// Package models defines the core domain types for Rewind.
package models

import (
	"encoding/json"
	"time"
)

// StepKind discriminates the canonical step union.
type StepKind string

const (
	StepNavigate          StepKind = "navigate"
	StepClick             StepKind = "click"
	StepDoubleClick       StepKind = "double-click"
	StepChangeValue       StepKind = "change-value"
	StepKeyDown           StepKind = "key-down"
	StepKeyUp             StepKind = "key-up"
	StepScroll            StepKind = "scroll"
	StepHover             StepKind = "hover"
	StepWaitForElement    StepKind = "wait-for-element"
	StepWaitForExpression StepKind = "wait-for-expression"
	StepSetViewport       StepKind = "set-viewport"
	StepUnknown           StepKind = "unknown"
)

// Step is one canonical action within a task. Kind selects which payload
// fields are meaningful. Selectors is an ordered sequence of selector groups;
// each group holds ordered alternative descriptors for one logical target,
// most preferred group first.
type Step struct {
	Index      int             `json:"index"`
	Kind       StepKind        `json:"kind"`
	Selectors  [][]string      `json:"selectors,omitempty"`
	Value      string          `json:"value,omitempty"`
	Key        string          `json:"key,omitempty"`
	X          float64         `json:"x,omitempty"`
	Y          float64         `json:"y,omitempty"`
	URL        string          `json:"url,omitempty"`
	Expression string          `json:"expression,omitempty"`
	TimeoutMs  int             `json:"timeout_ms,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"` // original action, kept for unknown kinds
}

// NeedsTarget reports whether the step kind locates a DOM node before acting.
func (s Step) NeedsTarget() bool {
	switch s.Kind {
	case StepClick, StepDoubleClick, StepHover, StepChangeValue, StepWaitForElement:
		return true
	}
	return false
}

// ErrorPolicy controls how a run reacts to a failing step.
type ErrorPolicy string

const (
	// PolicyStop aborts the run on the first step failure.
	PolicyStop ErrorPolicy = "stop"
	// PolicyContinue attempts every step regardless of failures.
	PolicyContinue ErrorPolicy = "continue"
)

// RunStatus is the terminal status of one replay run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunPartial RunStatus = "partial"
)

// Schedule describes when a task fires automatically. TimeOfDay is "HH:MM"
// local time. An empty Days set means every day.
type Schedule struct {
	Enabled   bool           `json:"enabled"`
	TimeOfDay string         `json:"time_of_day,omitempty"`
	Days      []time.Weekday `json:"days,omitempty"`
}

// FiresOn reports whether the schedule allows firing on the given weekday.
func (s Schedule) FiresOn(day time.Weekday) bool {
	if len(s.Days) == 0 {
		return true
	}
	for _, d := range s.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Task is a named automation unit built from an imported recording.
// Steps are frozen at import and only replaced through explicit edits.
type Task struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	StartURL       string      `json:"start_url,omitempty"`
	Steps          []Step      `json:"steps"`
	ErrorPolicy    ErrorPolicy `json:"error_policy"`
	Schedule       Schedule    `json:"schedule"`
	LastExecutedAt *time.Time  `json:"last_executed_at,omitempty"`
	LastStatus     RunStatus   `json:"last_status,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// FirstNavigateURL returns the URL of the first navigate step, or "".
func (t *Task) FirstNavigateURL() string {
	for _, s := range t.Steps {
		if s.Kind == StepNavigate && s.URL != "" {
			return s.URL
		}
	}
	return ""
}

// TaskUpdate is a partial task update; nil fields are left unchanged.
type TaskUpdate struct {
	Name           *string      `json:"name,omitempty"`
	ErrorPolicy    *ErrorPolicy `json:"error_policy,omitempty"`
	Schedule       *Schedule    `json:"schedule,omitempty"`
	LastExecutedAt *time.Time   `json:"last_executed_at,omitempty"`
	LastStatus     *RunStatus   `json:"last_status,omitempty"`
}

// RunOutcome is the immutable result of one replay run.
type RunOutcome struct {
	Status         RunStatus `json:"status"`
	CompletedSteps int       `json:"completed_steps"`
	TotalSteps     int       `json:"total_steps"`
	DurationMs     int64     `json:"duration_ms"`
	Message        string    `json:"message"`
}

// LogEntry is a persisted RunOutcome with task identity attached.
type LogEntry struct {
	ID             string    `json:"id"`
	TaskID         string    `json:"task_id"`
	TaskName       string    `json:"task_name"`
	Status         RunStatus `json:"status"`
	CompletedSteps int       `json:"completed_steps"`
	TotalSteps     int       `json:"total_steps"`
	DurationMs     int64     `json:"duration_ms"`
	Message        string    `json:"message,omitempty"`
	ExecutedAt     time.Time `json:"executed_at"`
}
