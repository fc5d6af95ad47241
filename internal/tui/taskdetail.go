package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rewindhq/rewind/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)
)

func (a *App) renderTaskDetail(height int) string {
	if a.currentTask == nil {
		return "Loading task details..."
	}
	t := a.currentTask

	var b strings.Builder
	b.WriteString(headerStyle.Render(t.Name))
	b.WriteString("\n\n")

	b.WriteString(renderField("ID", t.ID))
	b.WriteString(renderField("Start URL", t.StartURL))
	b.WriteString(renderField("Policy", string(t.ErrorPolicy)))
	b.WriteString(renderField("Schedule", formatScheduleLong(t.Schedule)))
	b.WriteString(renderField("Last run", formatLastRun(t)))

	// Steps section
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Steps (%d)", len(t.Steps))))
	b.WriteString("\n")
	maxSteps := 8
	for i, s := range t.Steps {
		if i >= maxSteps {
			b.WriteString(fmt.Sprintf("  ... and %d more steps\n", len(t.Steps)-maxSteps))
			break
		}
		b.WriteString(fmt.Sprintf("  %2d. %s\n", s.Index, describeStep(s)))
	}

	// Run log section
	if len(a.logs) > 0 {
		b.WriteString(sectionStyle.Render("Recent Runs"))
		b.WriteString("\n")
		for i, e := range a.logs {
			if i >= 5 {
				b.WriteString(fmt.Sprintf("  ... and %d more runs\n", len(a.logs)-5))
				break
			}
			b.WriteString(fmt.Sprintf("  %s  %s  %d/%d steps  %s\n",
				e.ExecutedAt.Local().Format("Jan 2 15:04"),
				formatRunStatus(e.Status),
				e.CompletedSteps, e.TotalSteps,
				truncate(e.Message, 50)))
		}
	}

	lines := strings.Split(b.String(), "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func renderField(label, value string) string {
	return fmt.Sprintf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func describeStep(s models.Step) string {
	desc := string(s.Kind)
	switch {
	case s.URL != "":
		desc += " " + truncate(s.URL, 50)
	case len(s.Selectors) > 0 && len(s.Selectors[0]) > 0:
		desc += " " + truncate(s.Selectors[0][0], 50)
	case s.Key != "":
		desc += " " + s.Key
	case s.Expression != "":
		desc += " " + truncate(s.Expression, 50)
	}
	if s.Kind == models.StepChangeValue && s.Value != "" {
		desc += fmt.Sprintf(" = %q", truncate(s.Value, 20))
	}
	return desc
}

func formatScheduleLong(s models.Schedule) string {
	if !s.Enabled {
		return "off"
	}
	if len(s.Days) == 0 {
		return "daily at " + s.TimeOfDay
	}
	names := make([]string, len(s.Days))
	for i, d := range s.Days {
		names[i] = strings.ToLower(d.String()[:3])
	}
	return s.TimeOfDay + " on " + strings.Join(names, ",")
}

func formatLastRun(t *models.Task) string {
	if t.LastExecutedAt == nil {
		return "never"
	}
	return fmt.Sprintf("%s (%s)", t.LastStatus, t.LastExecutedAt.Local().Format(time.RFC1123))
}
