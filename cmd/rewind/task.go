package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewindhq/rewind/internal/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage automation tasks",
}

var taskImportCmd = &cobra.Command{
	Use:   "import [recording.json]",
	Short: "Import a browser recording as a new task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskImport,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskRunCmd = &cobra.Command{
	Use:   "run [task-id]",
	Short: "Replay a task now",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRun,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete [task-id]",
	Short: "Delete a task and its run logs",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDelete,
}

var taskSetCmd = &cobra.Command{
	Use:   "set [task-id]",
	Short: "Update a task's name, error policy, or schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskSet,
}

var taskLogCmd = &cobra.Command{
	Use:   "log [task-id]",
	Short: "Show run logs for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskLog,
}

var (
	taskName     string
	taskStartURL string
	taskPolicy   string
	schedAt      string
	schedDays    string
	schedEnable  bool
	schedDisable bool
	logLimit     int
)

func init() {
	taskCmd.AddCommand(taskImportCmd, taskListCmd, taskShowCmd, taskRunCmd, taskDeleteCmd, taskSetCmd, taskLogCmd)

	taskImportCmd.Flags().StringVar(&taskName, "name", "", "Task name (defaults to the recording title)")
	taskImportCmd.Flags().StringVar(&taskStartURL, "url", "", "Start URL (defaults to the recording's first navigation)")
	taskImportCmd.Flags().StringVar(&taskPolicy, "policy", "stop", "Error policy: stop or continue")

	taskSetCmd.Flags().StringVar(&taskName, "name", "", "New task name")
	taskSetCmd.Flags().StringVar(&taskPolicy, "policy", "", "Error policy: stop or continue")
	taskSetCmd.Flags().StringVar(&schedAt, "at", "", "Daily schedule time, HH:MM local")
	taskSetCmd.Flags().StringVar(&schedDays, "days", "", "Comma-separated weekdays (mon,tue,...); empty means every day")
	taskSetCmd.Flags().BoolVar(&schedEnable, "enable", false, "Enable the schedule")
	taskSetCmd.Flags().BoolVar(&schedDisable, "disable", false, "Disable the schedule")

	taskLogCmd.Flags().IntVar(&logLimit, "limit", 20, "Maximum entries to show")
}

func runTaskImport(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	policy, err := parsePolicy(taskPolicy)
	if err != nil {
		return err
	}

	body := map[string]interface{}{
		"name":         taskName,
		"start_url":    taskStartURL,
		"error_policy": policy,
		"recording":    json.RawMessage(raw),
	}

	resp, err := apiPost(apiClient, "/tasks/import", body)
	if err != nil {
		return err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("Imported task %s (%q, %d steps)\n", truncateID(task.ID), task.Name, len(task.Steps))
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/tasks")
	if err != nil {
		return err
	}

	var tasks []models.Task
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTEPS\tPOLICY\tSCHEDULE\tLAST RUN")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			truncateID(t.ID),
			truncate(t.Name, 40),
			len(t.Steps),
			t.ErrorPolicy,
			formatSchedule(t.Schedule),
			formatLastRun(&t))
	}
	w.Flush()
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/tasks/" + args[0])
	if err != nil {
		return err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("ID:        %s\n", task.ID)
	fmt.Printf("Name:      %s\n", task.Name)
	fmt.Printf("Start URL: %s\n", task.StartURL)
	fmt.Printf("Policy:    %s\n", task.ErrorPolicy)
	fmt.Printf("Schedule:  %s\n", formatSchedule(task.Schedule))
	fmt.Printf("Last run:  %s\n", formatLastRun(&task))
	fmt.Printf("Created:   %s\n", task.CreatedAt.Local().Format(time.RFC1123))
	fmt.Printf("Steps:     %d\n", len(task.Steps))
	for _, s := range task.Steps {
		line := fmt.Sprintf("  %2d. %s", s.Index, s.Kind)
		switch {
		case s.URL != "":
			line += " " + s.URL
		case len(s.Selectors) > 0 && len(s.Selectors[0]) > 0:
			line += " " + truncate(s.Selectors[0][0], 60)
		case s.Key != "":
			line += " " + s.Key
		}
		fmt.Println(line)
	}
	return nil
}

func runTaskRun(cmd *cobra.Command, args []string) error {
	fmt.Println("Replaying task...")
	resp, err := apiPost(runClient, "/tasks/"+args[0]+"/run", nil)
	if err != nil {
		return err
	}

	var outcome models.RunOutcome
	if err := json.Unmarshal(resp, &outcome); err != nil {
		return err
	}

	fmt.Printf("Status:   %s\n", outcome.Status)
	fmt.Printf("Steps:    %d/%d\n", outcome.CompletedSteps, outcome.TotalSteps)
	fmt.Printf("Duration: %s\n", time.Duration(outcome.DurationMs)*time.Millisecond)
	if outcome.Message != "" {
		fmt.Printf("Message:  %s\n", outcome.Message)
	}
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	if _, err := apiDelete("/tasks/" + args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted task %s\n", args[0])
	return nil
}

func runTaskSet(cmd *cobra.Command, args []string) error {
	update := map[string]interface{}{}

	if taskName != "" {
		update["name"] = taskName
	}
	if taskPolicy != "" {
		policy, err := parsePolicy(taskPolicy)
		if err != nil {
			return err
		}
		update["error_policy"] = policy
	}

	if schedEnable && schedDisable {
		return fmt.Errorf("--enable and --disable are mutually exclusive")
	}
	if schedEnable || schedDisable || schedAt != "" || cmd.Flags().Changed("days") {
		sched, err := buildSchedule(args[0], cmd.Flags().Changed("days"))
		if err != nil {
			return err
		}
		update["schedule"] = sched
	}

	if len(update) == 0 {
		return fmt.Errorf("nothing to update; see --help for flags")
	}

	resp, err := apiPatch("/tasks/"+args[0], update)
	if err != nil {
		return err
	}

	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}

	fmt.Printf("Updated task %s\n", truncateID(task.ID))
	fmt.Printf("Policy:   %s\n", task.ErrorPolicy)
	fmt.Printf("Schedule: %s\n", formatSchedule(task.Schedule))
	return nil
}

// buildSchedule merges the schedule flags over the task's current schedule so
// `task set --disable` keeps the stored time and days.
func buildSchedule(taskID string, daysChanged bool) (*models.Schedule, error) {
	resp, err := apiGet("/tasks/" + taskID)
	if err != nil {
		return nil, err
	}
	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return nil, err
	}

	sched := task.Schedule
	if schedAt != "" {
		sched.TimeOfDay = schedAt
		sched.Enabled = true
	}
	if daysChanged {
		days, err := parseDays(schedDays)
		if err != nil {
			return nil, err
		}
		sched.Days = days
	}
	if schedEnable {
		sched.Enabled = true
	}
	if schedDisable {
		sched.Enabled = false
	}
	if sched.Enabled && sched.TimeOfDay == "" {
		return nil, fmt.Errorf("schedule needs a time; pass --at HH:MM")
	}
	return &sched, nil
}

func runTaskLog(cmd *cobra.Command, args []string) error {
	resp, err := apiGet(fmt.Sprintf("/tasks/%s/logs?limit=%d", args[0], logLimit))
	if err != nil {
		return err
	}
	return printLogs(resp)
}

// --- Helpers ---

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

// parseDays parses "mon,tue,..."; an empty string clears the day filter so
// the schedule fires every day.
func parseDays(s string) ([]time.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if len(name) > 3 {
			name = name[:3]
		}
		day, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		days = append(days, day)
	}
	return days, nil
}

func parsePolicy(s string) (models.ErrorPolicy, error) {
	switch models.ErrorPolicy(s) {
	case models.PolicyStop:
		return models.PolicyStop, nil
	case models.PolicyContinue:
		return models.PolicyContinue, nil
	}
	return "", fmt.Errorf("invalid policy %q: must be stop or continue", s)
}

func formatSchedule(s models.Schedule) string {
	if !s.Enabled {
		return "off"
	}
	if len(s.Days) == 0 {
		return "daily " + s.TimeOfDay
	}
	names := make([]string, len(s.Days))
	for i, d := range s.Days {
		names[i] = strings.ToLower(d.String()[:3])
	}
	return s.TimeOfDay + " " + strings.Join(names, ",")
}

func formatLastRun(t *models.Task) string {
	if t.LastExecutedAt == nil {
		return "never"
	}
	return fmt.Sprintf("%s (%s)", string(t.LastStatus), t.LastExecutedAt.Local().Format("Jan 2 15:04"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
