package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rewindhq/rewind/internal/models"
)

var (
	statusSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	statusFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
	statusPartial = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	statusNever   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // Gray

	taskItemStyle = lipgloss.NewStyle().Padding(0, 2)

	selectedItemStyle = lipgloss.NewStyle().
				Background(primaryColor).
				Foreground(fgColor).
				Bold(true).
				Padding(0, 2)
)

func (a *App) renderTaskList(height int) string {
	if a.loading {
		return "Loading tasks..."
	}
	if len(a.tasks) == 0 {
		return taskItemStyle.Render("No tasks yet. Import one with: rewind task import recording.json")
	}

	var b strings.Builder
	start := 0
	if a.selectedIdx >= height {
		start = a.selectedIdx - height + 1
	}
	for i := start; i < len(a.tasks) && i-start < height; i++ {
		t := a.tasks[i]
		line := fmt.Sprintf("%-40s %3d steps  %s  %s",
			truncate(t.Name, 40),
			len(t.Steps),
			formatScheduleShort(t.Schedule),
			formatRunStatus(t.LastStatus))
		if i == a.selectedIdx {
			b.WriteString(selectedItemStyle.Render("▶ " + line))
		} else {
			b.WriteString(taskItemStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatRunStatus(status models.RunStatus) string {
	switch status {
	case models.RunSuccess:
		return statusSuccess.Render("● success")
	case models.RunFailed:
		return statusFailed.Render("● failed")
	case models.RunPartial:
		return statusPartial.Render("● partial")
	default:
		return statusNever.Render("○ never run")
	}
}

func formatScheduleShort(s models.Schedule) string {
	if !s.Enabled {
		return "          "
	}
	return "⏰ " + s.TimeOfDay
}

var weekdayAbbrevs = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

func parseWeekdays(s string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if len(name) > 3 {
			name = name[:3]
		}
		day, ok := weekdayAbbrevs[name]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		days = append(days, day)
	}
	return days, nil
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
