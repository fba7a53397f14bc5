package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"aitasks/backend"
	"aitasks/internal/ai"
	"aitasks/internal/operations"
	"aitasks/internal/stats"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true)
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	priorityStyles = map[backend.Priority]lipgloss.Style{
		backend.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		backend.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		backend.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

// GetTerminalWidth returns the current terminal width, defaulting to 80 if unable to detect
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return width
}

// DisplayOptions controls task rendering.
type DisplayOptions struct {
	Width      int
	DateFormat string
	Now        time.Time
	ShowIDs    bool
	ShowNotes  bool
}

func (o DisplayOptions) borderWidth() int {
	w := o.Width - 2
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100 // readability
	}
	return w
}

func (o DisplayOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

func box(title string, body []string, width int) string {
	header := "─ " + title + " "
	pad := width - lipgloss.Width(header)
	if pad < 0 {
		pad = 0
	}
	var sb strings.Builder
	sb.WriteString(borderStyle.Render("┌"+header+strings.Repeat("─", pad)+"┐") + "\n")
	for _, line := range body {
		sb.WriteString(line + "\n")
	}
	sb.WriteString(borderStyle.Render("└"+strings.Repeat("─", width)+"┘") + "\n")
	return sb.String()
}

// priorityBadge renders a one-letter priority marker.
func priorityBadge(p backend.Priority) string {
	style, ok := priorityStyles[p]
	if !ok {
		return " "
	}
	return style.Render(strings.ToUpper(string(p)[:1]))
}

// FormatTask renders one task line plus optional detail lines.
func FormatTask(t backend.Task, opts DisplayOptions) []string {
	check := "[ ]"
	title := t.Title
	if t.Completed {
		check = "[x]"
		title = doneStyle.Render(title)
	}

	line := fmt.Sprintf("  %s %s %s", check, priorityBadge(t.Priority), title)
	if t.Deadline != nil {
		due := "due " + operations.FormatDeadline(t.Deadline, opts.DateFormat)
		if t.IsOverdue(opts.now()) {
			due = overdueStyle.Render(due + " (overdue)")
		} else {
			due = dimStyle.Render(due)
		}
		line += "  " + due
	}
	if len(t.Tags) > 0 {
		tags := make([]string, len(t.Tags))
		for i, tag := range t.Tags {
			tags[i] = "#" + tag
		}
		line += "  " + tagStyle.Render(strings.Join(tags, " "))
	}
	if done, total := operations.SubNoteProgress(t); total > 0 {
		line += dimStyle.Render(fmt.Sprintf("  (%d/%d)", done, total))
	}

	lines := []string{line}
	if opts.ShowIDs {
		lines = append(lines, dimStyle.Render("        "+t.ID))
	}
	if t.Description != "" {
		lines = append(lines, dimStyle.Render("        "+t.Description))
	}
	if opts.ShowNotes {
		for i, n := range t.SubNotes {
			mark := "-"
			if n.Kind == backend.SubNoteChecklist {
				mark = "[ ]"
				if n.Completed {
					mark = "[x]"
				}
			} else if n.Kind == backend.SubNoteNumbered {
				mark = fmt.Sprintf("%d.", i+1)
			}
			lines = append(lines, fmt.Sprintf("        %s %s", mark, n.Content))
		}
	}
	return lines
}

// RenderTasks renders a titled box of tasks.
func RenderTasks(title string, tasks []backend.Task, opts DisplayOptions) string {
	var body []string
	if len(tasks) == 0 {
		body = append(body, dimStyle.Render("  No tasks"))
	}
	for _, t := range tasks {
		body = append(body, FormatTask(t, opts)...)
	}
	return box(fmt.Sprintf("%s (%d)", title, len(tasks)), body, opts.borderWidth())
}

// RenderStats renders the headline counters and the streak.
func RenderStats(s stats.TaskStats, streak int, width int) string {
	body := []string{
		fmt.Sprintf("  Total      %d", s.Total),
		fmt.Sprintf("  Completed  %d", s.Completed),
		fmt.Sprintf("  Pending    %d", s.Pending),
		fmt.Sprintf("  Overdue    %s", countStyle(s.Overdue, overdueStyle)),
		fmt.Sprintf("  Today      %d", s.CompletedToday),
		fmt.Sprintf("  This week  %d", s.CompletedThisWeek),
		fmt.Sprintf("  Streak     %d day%s", streak, plural(streak)),
	}
	return box("Stats", body, DisplayOptions{Width: width}.borderWidth())
}

// RenderAnalytics renders the extended summary with bar charts.
func RenderAnalytics(tasks []backend.Task, now time.Time, width int) string {
	a := stats.Analyze(tasks, now)
	body := []string{
		fmt.Sprintf("  Completed this month     %d", a.CompletedThisMonth),
		fmt.Sprintf("  Average days to complete %d", a.AverageDaysToComplete),
	}
	if a.HasProductiveDay {
		body = append(body, fmt.Sprintf("  Most productive day      %s", a.MostProductiveDay))
	}

	body = append(body, "", titleStyle.Render("  Last 7 days"))
	trend := stats.CompletionTrend(tasks, now)
	peak := 0
	for _, d := range trend {
		peak = max(peak, d.Completed)
	}
	for _, d := range trend {
		body = append(body, fmt.Sprintf("  %s %s %d", d.Date.Format("Mon"), bar(d.Completed, peak, 30), d.Completed))
	}

	body = append(body, "", titleStyle.Render("  Priorities"))
	for _, p := range stats.PriorityDistribution(tasks) {
		body = append(body, fmt.Sprintf("  %s %-6s %d", priorityBadge(p.Priority), p.Priority, p.Count))
	}

	body = append(body, "", titleStyle.Render("  Weekly overview"))
	for _, w := range stats.WeeklyOverview(tasks, now) {
		body = append(body, fmt.Sprintf("  %s  created %-3d completed %d", w.Label, w.Created, w.Completed))
	}
	return box("Analytics", body, DisplayOptions{Width: width}.borderWidth())
}

// RenderInsights renders insights, unread first marker.
func RenderInsights(insights []ai.Insight, width int) string {
	var body []string
	if len(insights) == 0 {
		body = append(body, dimStyle.Render("  No insights available"))
	}
	for _, in := range insights {
		marker := "•"
		if !in.IsRead {
			marker = warnStyle.Render("•")
		}
		label := titleStyle.Render(fmt.Sprintf("%-10s", in.Type))
		body = append(body, fmt.Sprintf("  %s %s %s", marker, label, in.Content))
	}
	return box("Insights", body, DisplayOptions{Width: width}.borderWidth())
}

// RenderStatus renders routing and enrichment availability.
func RenderStatus(info backend.RouteInfo, aiState ai.State) string {
	return fmt.Sprintf("%s\n%s", info.String(), fmt.Sprintf("AI: %s", aiState))
}

// DegradedWarning is printed when a call fell back to the local store.
func DegradedWarning(cause error) string {
	return warnStyle.Render(fmt.Sprintf("! remote store unavailable, served from local store (%v)", cause))
}

func bar(n, peak, width int) string {
	if peak == 0 {
		return strings.Repeat(" ", width)
	}
	filled := n * width / peak
	return borderStyle.Render(strings.Repeat("█", filled)) + strings.Repeat(" ", width-filled)
}

func countStyle(n int, style lipgloss.Style) string {
	if n == 0 {
		return "0"
	}
	return style.Render(fmt.Sprint(n))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
