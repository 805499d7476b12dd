package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/muesli/termenv"
)

var statusColors = map[domain.ExecutionStatus]string{
	domain.StatusIdle:      "#9ca3af",
	domain.StatusRunning:   "#38bdf8",
	domain.StatusStopping:  "#fbbf24",
	domain.StatusCompleted: "#4ade80",
	domain.StatusStopped:   "#fb923c",
	domain.StatusError:     "#f87171",
}

// StatusLine renders a one-line, colored summary of a unit's state.
func StatusLine(p termenv.Profile, st domain.ExecutionState) string {
	status := termenv.String(fmt.Sprintf("%-9s", st.Status)).Foreground(p.Color(statusColors[st.Status]))
	line := fmt.Sprintf("%-20s %s %3d%%", st.UnitID, status, st.Progress)
	if st.CurrentNode != "" {
		line += "  @" + st.CurrentNode
	}
	if st.Error != "" {
		line += "  " + termenv.String(st.Error).Foreground(p.Color(statusColors[domain.StatusError])).String()
	}
	return line
}

// StatusMarkdown renders unit states, and optionally the run-all state, as a markdown report.
func StatusMarkdown(states []domain.ExecutionState, master *domain.MasterState) string {
	var sb strings.Builder
	if master != nil {
		sb.WriteString("## Run all\n\n")
		fmt.Fprintf(&sb, "- **Status:** %s\n", master.Status)
		fmt.Fprintf(&sb, "- **Progress:** %d%% (%d/%d units)\n", master.Progress, master.UnitsCompleted, master.TotalUnits)
		if master.CurrentUnit != "" {
			fmt.Fprintf(&sb, "- **Current unit:** %s\n", master.CurrentUnit)
		}
		if master.Error != "" {
			fmt.Fprintf(&sb, "- **Error:** %s\n", master.Error)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Units\n\n")
	sb.WriteString("| Unit | Status | Progress | Node | Error |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, st := range states {
		fmt.Fprintf(&sb, "| %s | %s | %d%% | %s | %s |\n",
			cell(st.UnitID), st.Status, st.Progress, cell(st.CurrentNode), cell(st.Error))
	}
	return sb.String()
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
