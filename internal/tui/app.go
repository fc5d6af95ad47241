// Package tui provides the interactive terminal UI for Rewind.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rewindhq/rewind/internal/models"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	daemonOnlineStyle = lipgloss.NewStyle().
				Foreground(successColor).
				Bold(true)

	daemonOfflineStyle = lipgloss.NewStyle().
				Foreground(errorColor)
)

// App is the main TUI application model.
type App struct {
	client       *Client
	tasks        []models.Task
	selectedIdx  int
	input        textinput.Model
	width        int
	height       int
	mode         string // "list" or "detail"
	currentTask  *models.Task
	logs         []models.LogEntry
	message      string
	loading      bool
	running      bool
	daemonOnline bool
	suggestions  *Suggestions
}

// New creates a new TUI application.
func New(apiAddr string) *App {
	ti := textinput.New()
	ti.Placeholder = "Type: /run | /delete | /enable 09:00 mon,fri | /disable | /policy continue"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 80

	return &App{
		client:      NewClient(apiAddr),
		input:       ti,
		mode:        "list",
		suggestions: NewSuggestions(),
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.fetchTasks(),
		a.checkDaemon(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit

		case "esc":
			if a.mode == "detail" {
				a.mode = "list"
				a.currentTask = nil
				a.logs = nil
				return a, a.fetchTasks()
			}

		case "up", "k":
			if a.suggestions.IsVisible() {
				a.suggestions.Prev()
			} else if a.mode == "list" && a.selectedIdx > 0 {
				a.selectedIdx--
			}

		case "down", "j":
			if a.suggestions.IsVisible() {
				a.suggestions.Next()
			} else if a.mode == "list" && a.selectedIdx < len(a.tasks)-1 {
				a.selectedIdx++
			}

		case "tab":
			if a.suggestions.IsVisible() {
				if selected := a.suggestions.Selected(); selected != nil {
					a.input.SetValue("/" + selected.Text + " ")
					a.input.CursorEnd()
					a.suggestions.Update("")
				}
				return a, nil
			}

		case "enter":
			if a.suggestions.IsVisible() {
				if selected := a.suggestions.Selected(); selected != nil {
					a.input.SetValue("/" + selected.Text + " ")
					a.input.CursorEnd()
					a.suggestions.Update("")
				}
				return a, nil
			}
			cmd := strings.TrimSpace(a.input.Value())
			if cmd != "" {
				a.input.SetValue("")
				return a, a.executeCommand(cmd)
			} else if a.mode == "list" && len(a.tasks) > 0 {
				task := a.tasks[a.selectedIdx]
				a.mode = "detail"
				return a, a.fetchTaskDetail(task.ID)
			}

		case "r":
			if a.input.Value() == "" {
				if a.mode == "detail" && a.currentTask != nil {
					return a, a.fetchTaskDetail(a.currentTask.ID)
				}
				return a, a.fetchTasks()
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 4

	case tasksLoadedMsg:
		a.loading = false
		a.tasks = msg.tasks
		if a.selectedIdx >= len(a.tasks) {
			a.selectedIdx = max(0, len(a.tasks)-1)
		}

	case taskDetailLoadedMsg:
		a.currentTask = msg.task
		a.logs = msg.logs

	case daemonStatusMsg:
		a.daemonOnline = msg.online

	case runStartedMsg:
		a.running = true
		a.message = "Replaying " + msg.name + "..."
		cmds = append(cmds, msg.cmd)

	case runFinishedMsg:
		a.running = false
		a.message = msg.message
		if a.mode == "detail" && a.currentTask != nil {
			cmds = append(cmds, a.fetchTaskDetail(a.currentTask.ID))
		} else {
			cmds = append(cmds, a.fetchTasks())
		}

	case commandResultMsg:
		a.message = msg.message
		if a.mode == "detail" && a.currentTask != nil {
			cmds = append(cmds, a.fetchTaskDetail(a.currentTask.ID))
		} else {
			cmds = append(cmds, a.fetchTasks())
		}

	case errMsg:
		a.loading = false
		a.running = false
		a.message = "Error: " + msg.err.Error()
	}

	// Update input
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	// Update suggestions based on input
	a.suggestions.Update(a.input.Value())

	return a, tea.Batch(cmds...)
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	daemonStatus := daemonOnlineStyle.Render("● DAEMON")
	if !a.daemonOnline {
		daemonStatus = daemonOfflineStyle.Render("○ DAEMON")
	}

	header := titleStyle.Render("⏪ REWIND")
	header += "  " + daemonStatus
	if a.running {
		header += "  " + lipgloss.NewStyle().Foreground(warningColor).Render("▶ replay in progress")
	}

	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 1)) + "\n")

	contentHeight := a.height - 8
	if contentHeight < 5 {
		contentHeight = 5
	}

	switch a.mode {
	case "list":
		b.WriteString(a.renderTaskList(contentHeight))
	case "detail":
		b.WriteString(a.renderTaskDetail(contentHeight))
	}

	// Message bar
	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	} else {
		b.WriteString("\n")
	}

	// Input box
	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()))

	if a.suggestions.IsVisible() {
		b.WriteString("\n")
		b.WriteString(a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	// Status bar
	var status string
	switch a.mode {
	case "list":
		status = fmt.Sprintf(" Tasks: %d | ↑↓:nav | Enter:detail | r:refresh | /:commands | Ctrl+C:quit", len(a.tasks))
	default:
		status = " Esc:back | r:refresh | /:commands | Ctrl+C:quit"
	}
	b.WriteString(statusBarStyle.Width(a.width).Render(status))

	return b.String()
}

// --- Commands ---

func (a *App) fetchTasks() tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		tasks, err := a.client.ListTasks()
		if err != nil {
			return errMsg{err}
		}
		return tasksLoadedMsg{tasks}
	}
}

func (a *App) fetchTaskDetail(taskID string) tea.Cmd {
	return func() tea.Msg {
		task, err := a.client.GetTask(taskID)
		if err != nil {
			return errMsg{err}
		}
		logs, _ := a.client.GetTaskLogs(taskID, 10)
		return taskDetailLoadedMsg{task, logs}
	}
}

func (a *App) checkDaemon() tea.Cmd {
	return func() tea.Msg {
		ok, _ := a.client.CheckHealth()
		return daemonStatusMsg{ok}
	}
}

// selectedTask returns the task commands act on: the open detail task, else
// the list selection.
func (a *App) selectedTask() *models.Task {
	if a.mode == "detail" && a.currentTask != nil {
		return a.currentTask
	}
	if a.mode == "list" && a.selectedIdx < len(a.tasks) {
		return &a.tasks[a.selectedIdx]
	}
	return nil
}

func (a *App) executeCommand(input string) tea.Cmd {
	input = strings.TrimPrefix(input, "/")
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	cmd := parts[0]
	args := parts[1:]

	task := a.selectedTask()
	if task == nil {
		return func() tea.Msg { return commandResultMsg{"No task selected"} }
	}
	taskID := task.ID
	taskName := task.Name

	switch cmd {
	case "run":
		runCmd := func() tea.Msg {
			outcome, err := a.client.RunTask(taskID)
			if err != nil {
				return errMsg{err}
			}
			return runFinishedMsg{fmt.Sprintf("Run %s: %d/%d steps (%s)",
				outcome.Status, outcome.CompletedSteps, outcome.TotalSteps, outcome.Message)}
		}
		return func() tea.Msg { return runStartedMsg{name: taskName, cmd: runCmd} }

	case "delete":
		return func() tea.Msg {
			if err := a.client.DeleteTask(taskID); err != nil {
				return errMsg{err}
			}
			return commandResultMsg{"Deleted " + taskName}
		}

	case "enable":
		if len(args) < 1 {
			return func() tea.Msg { return commandResultMsg{"Usage: /enable HH:MM [mon,tue,...]"} }
		}
		sched := map[string]interface{}{
			"enabled":     true,
			"time_of_day": args[0],
		}
		if len(args) > 1 {
			days, err := parseWeekdays(args[1])
			if err != nil {
				return func() tea.Msg { return errMsg{err} }
			}
			sched["days"] = days
		}
		return a.patchTask(taskID, map[string]interface{}{"schedule": sched}, "Schedule enabled")

	case "disable":
		sched := task.Schedule
		sched.Enabled = false
		return a.patchTask(taskID, map[string]interface{}{"schedule": sched}, "Schedule disabled")

	case "policy":
		if len(args) != 1 || (args[0] != string(models.PolicyStop) && args[0] != string(models.PolicyContinue)) {
			return func() tea.Msg { return commandResultMsg{"Usage: /policy stop|continue"} }
		}
		return a.patchTask(taskID, map[string]interface{}{"error_policy": args[0]}, "Policy set to "+args[0])

	case "rename":
		if len(args) < 1 {
			return func() tea.Msg { return commandResultMsg{"Usage: /rename <new name>"} }
		}
		name := strings.Join(args, " ")
		return a.patchTask(taskID, map[string]interface{}{"name": name}, "Renamed to "+name)

	default:
		return func() tea.Msg { return commandResultMsg{"Unknown command: " + cmd} }
	}
}

func (a *App) patchTask(taskID string, update map[string]interface{}, okMessage string) tea.Cmd {
	return func() tea.Msg {
		if _, err := a.client.UpdateTask(taskID, update); err != nil {
			return errMsg{err}
		}
		return commandResultMsg{okMessage}
	}
}

// --- Messages ---

type tasksLoadedMsg struct {
	tasks []models.Task
}

type taskDetailLoadedMsg struct {
	task *models.Task
	logs []models.LogEntry
}

type daemonStatusMsg struct {
	online bool
}

type runStartedMsg struct {
	name string
	cmd  tea.Cmd
}

type runFinishedMsg struct {
	message string
}

type commandResultMsg struct {
	message string
}

type errMsg struct {
	err error
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
