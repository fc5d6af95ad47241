// Package store provides SQLite-backed persistence for Rewind tasks and run
// logs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rewindhq/rewind/internal/models"
)

// DefaultMaxLogs is the retained run-log cap when none is configured.
const DefaultMaxLogs = 200

// ErrTaskNotFound is returned when an operation names a task that does not
// exist.
var ErrTaskNotFound = errors.New("task not found")

// Store provides access to the Rewind SQLite database.
type Store struct {
	db      *sql.DB
	maxLogs int
}

// New creates a Store and runs migrations. maxLogs caps the retained run-log
// count; pass 0 for the default.
func New(dbPath string, maxLogs int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode for better concurrency across the API and trigger loops.
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if maxLogs <= 0 {
		maxLogs = DefaultMaxLogs
	}

	s := &Store{db: db, maxLogs: maxLogs}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_url TEXT,
		steps TEXT NOT NULL,
		error_policy TEXT NOT NULL DEFAULT 'stop',
		schedule_enabled INTEGER NOT NULL DEFAULT 0,
		schedule_time TEXT,
		schedule_days TEXT,
		last_executed_at DATETIME,
		last_status TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_logs (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		task_name TEXT NOT NULL,
		status TEXT NOT NULL,
		completed_steps INTEGER NOT NULL,
		total_steps INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		message TEXT,
		executed_at DATETIME NOT NULL,
		FOREIGN KEY (task_id) REFERENCES tasks(id)
	);

	CREATE INDEX IF NOT EXISTS idx_run_logs_task_id ON run_logs(task_id);
	CREATE INDEX IF NOT EXISTS idx_run_logs_executed_at ON run_logs(executed_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Task Operations ---

// SaveTask inserts a new task. A missing ID is assigned.
func (s *Store) SaveTask(task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.ErrorPolicy == "" {
		task.ErrorPolicy = models.PolicyStop
	}

	stepsJSON, err := json.Marshal(task.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	daysJSON, err := json.Marshal(task.Schedule.Days)
	if err != nil {
		return fmt.Errorf("marshal schedule days: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO tasks (id, name, start_url, steps, error_policy, schedule_enabled, schedule_time, schedule_days, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Name, task.StartURL, string(stepsJSON), task.ErrorPolicy,
		boolToInt(task.Schedule.Enabled), task.Schedule.TimeOfDay, string(daysJSON),
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID, nil when absent.
func (s *Store) GetTask(id string) (*models.Task, error) {
	row := s.db.QueryRow(
		`SELECT id, name, start_url, steps, error_policy, schedule_enabled, schedule_time, schedule_days, last_executed_at, last_status, created_at, updated_at
		 FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

// ListTasks returns all tasks, newest first.
func (s *Store) ListTasks() ([]models.Task, error) {
	rows, err := s.db.Query(
		`SELECT id, name, start_url, steps, error_policy, schedule_enabled, schedule_time, schedule_days, last_executed_at, last_status, created_at, updated_at
		 FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// UpdateTaskFields applies a partial update; nil fields are untouched.
func (s *Store) UpdateTaskFields(id string, u models.TaskUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}

	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.ErrorPolicy != nil {
		sets = append(sets, "error_policy = ?")
		args = append(args, *u.ErrorPolicy)
	}
	if u.Schedule != nil {
		daysJSON, err := json.Marshal(u.Schedule.Days)
		if err != nil {
			return fmt.Errorf("marshal schedule days: %w", err)
		}
		sets = append(sets, "schedule_enabled = ?", "schedule_time = ?", "schedule_days = ?")
		args = append(args, boolToInt(u.Schedule.Enabled), u.Schedule.TimeOfDay, string(daysJSON))
	}
	if u.LastExecutedAt != nil {
		sets = append(sets, "last_executed_at = ?")
		args = append(args, *u.LastExecutedAt)
	}
	if u.LastStatus != nil {
		sets = append(sets, "last_status = ?")
		args = append(args, *u.LastStatus)
	}

	args = append(args, id)
	res, err := s.db.Exec(`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes a task and its run logs in one transaction. The caller
// is responsible for canceling the task's recurring trigger.
func (s *Store) DeleteTask(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	if _, err := tx.Exec(`DELETE FROM run_logs WHERE task_id = ?`, id); err != nil {
		return fmt.Errorf("delete task logs: %w", err)
	}
	return tx.Commit()
}

// --- Run Log Operations ---

// AppendLog inserts a run-log entry and trims the collection to the retained
// cap, oldest dropped first.
func (s *Store) AppendLog(entry *models.LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO run_logs (id, task_id, task_name, status, completed_steps, total_steps, duration_ms, message, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TaskID, entry.TaskName, entry.Status,
		entry.CompletedSteps, entry.TotalSteps, entry.DurationMs, entry.Message, entry.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}

	_, err = tx.Exec(
		`DELETE FROM run_logs WHERE id NOT IN (
			SELECT id FROM run_logs ORDER BY executed_at DESC, id LIMIT ?
		)`, s.maxLogs)
	if err != nil {
		return fmt.Errorf("trim logs: %w", err)
	}
	return tx.Commit()
}

// GetLogs returns run-log entries, newest first, optionally filtered by task.
// limit <= 0 means no limit.
func (s *Store) GetLogs(taskID string, limit int) ([]models.LogEntry, error) {
	query := `SELECT id, task_id, task_name, status, completed_steps, total_steps, duration_ms, message, executed_at FROM run_logs`
	var args []interface{}
	if taskID != "" {
		query += ` WHERE task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY executed_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var e models.LogEntry
		var message sql.NullString
		if err := rows.Scan(&e.ID, &e.TaskID, &e.TaskName, &e.Status, &e.CompletedSteps,
			&e.TotalSteps, &e.DurationMs, &message, &e.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		if message.Valid {
			e.Message = message.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Helpers ---

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var startURL, scheduleTime, scheduleDays, lastStatus sql.NullString
	var lastExecutedAt sql.NullTime
	var stepsJSON string
	var enabled int

	err := row.Scan(&task.ID, &task.Name, &startURL, &stepsJSON, &task.ErrorPolicy,
		&enabled, &scheduleTime, &scheduleDays, &lastExecutedAt, &lastStatus,
		&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(stepsJSON), &task.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	if startURL.Valid {
		task.StartURL = startURL.String
	}
	task.Schedule.Enabled = enabled != 0
	if scheduleTime.Valid {
		task.Schedule.TimeOfDay = scheduleTime.String
	}
	if scheduleDays.Valid && scheduleDays.String != "" {
		if err := json.Unmarshal([]byte(scheduleDays.String), &task.Schedule.Days); err != nil {
			return nil, fmt.Errorf("unmarshal schedule days: %w", err)
		}
	}
	if lastExecutedAt.Valid {
		t := lastExecutedAt.Time
		task.LastExecutedAt = &t
	}
	if lastStatus.Valid {
		task.LastStatus = models.RunStatus(lastStatus.String)
	}
	return task, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
