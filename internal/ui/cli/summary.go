package cli

import (
	"fmt"
	"strings"
	"time"

	coreapp "compgraph/internal/core/app"
	"compgraph/internal/data/history"
	"compgraph/internal/engine/parser"
	"compgraph/internal/shared/util"

	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B"))

	cycleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

func renderSummary(project string, u coreapp.Update) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("compgraph: "+project) + "\n")

	row := func(label string, value any) {
		b.WriteString(fmt.Sprintf("  %s %v\n", labelStyle.Render(fmt.Sprintf("%-16s", label)), value))
	}
	row("files", u.FilesVisited)
	row("components", u.Stats.TotalNodes)
	row("relationships", u.Stats.TotalEdges)
	row("avg connections", fmt.Sprintf("%.2f", u.Stats.AvgConnections))
	row("scan time", u.Duration.Round(time.Millisecond))

	var types []string
	for _, t := range parser.ComponentTypes {
		if n := u.Stats.CountsByType[t]; n > 0 {
			types = append(types, fmt.Sprintf("%s=%d", t, n))
		}
	}
	if len(types) > 0 {
		row("by type", strings.Join(types, " "))
	}
	langs := make(map[string]int, len(u.Stats.CountsByLanguage))
	for l, n := range u.Stats.CountsByLanguage {
		langs[string(l)] = n
	}
	if len(langs) > 0 {
		var parts []string
		for _, l := range util.SortedStringKeys(langs) {
			parts = append(parts, fmt.Sprintf("%s=%d", l, langs[l]))
		}
		row("by language", strings.Join(parts, " "))
	}

	switch {
	case len(u.Cycles) > 0:
		b.WriteString("  " + cycleStyle.Render(fmt.Sprintf("%d dependency cycles", len(u.Cycles))) + "\n")
	default:
		b.WriteString("  " + successStyle.Render("no dependency cycles") + "\n")
	}
	if len(u.Failures) > 0 {
		b.WriteString("  " + cycleStyle.Render(fmt.Sprintf("%d files failed to parse", len(u.Failures))) + "\n")
		for _, f := range u.Failures {
			msg := ""
			if len(f.Errors) > 0 {
				msg = f.Errors[0]
			}
			b.WriteString("    " + statusStyle.Render(fmt.Sprintf("%s: %s", f.FilePath, msg)) + "\n")
		}
	}
	return b.String()
}

func renderHistory(rows []history.Snapshot) string {
	if len(rows) == 0 {
		return statusStyle.Render("no history snapshots recorded") + "\n"
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("%-20s  %6s  %6s  %6s  %6s  %s", "timestamp", "nodes", "edges", "cycles", "failed", "scan id")) + "\n")
	for _, s := range rows {
		b.WriteString(fmt.Sprintf("%-20s  %6d  %6d  %6d  %6d  %s\n",
			s.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
			s.NodeCount, s.EdgeCount, s.CycleCount, s.FailureCount, s.ScanID))
	}
	return b.String()
}
