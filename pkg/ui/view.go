package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/archtrace/pkg/graph"
	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
	"github.com/vanderheijden86/archtrace/pkg/viewer"
)

func (m Model) renderTitle() string {
	title := m.arch.Title
	if title == "" {
		title = "Architecture"
	}
	line := m.theme.Title.Render(truncate(title, m.width))
	if rest := m.width - runewidth.StringWidth(title) - 2; m.arch.Subtitle != "" && rest > 4 {
		line += "  " + m.theme.Subtitle.Render(truncate(m.arch.Subtitle, rest))
	}
	return line
}

func (m Model) renderMilestoneBar(snap viewer.Snapshot) string {
	parts := make([]string, 0, len(model.Milestones))
	for i, ms := range model.Milestones {
		label := fmt.Sprintf("%d %s", i+1, ms.Label())
		if snap.Milestone == ms {
			parts = append(parts, m.theme.MilestoneOn.Render(label))
		} else {
			parts = append(parts, m.theme.MilestoneOff.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

// renderLegend explains the card colours. Milestone mode replaces it with
// the stage description, since trace colours are not shown there.
func (m Model) renderLegend(snap viewer.Snapshot) string {
	if snap.MilestoneMode() {
		lit := 0
		for _, n := range m.graph.AllNodes() {
			if snap.MilestoneMatch(n) {
				lit++
			}
		}
		return m.theme.CardMatch.Render(fmt.Sprintf("%s: %s", snap.Milestone.Label(), snap.Milestone.Description())) +
			m.theme.Muted.Render(fmt.Sprintf("  · %d systems in place", lit))
	}

	filter := "all"
	if m.typeFilter != "" {
		filter = string(m.typeFilter)
	}
	return strings.Join([]string{
		m.theme.CardSelected.Render("■ selected"),
		m.theme.CardSource.Render("■ source"),
		m.theme.CardTarget.Render("■ dest"),
		m.theme.BadgeNew.Render("NEW"),
		m.theme.BadgeCore.Render("CORE"),
		m.theme.Muted.Render("filter: " + filter),
	}, "  ")
}

// connectorLines lists the trace, upstream edges first, as plain text.
func connectorLines(snap viewer.Snapshot, g *graph.Graph) []string {
	name := func(id string) string {
		if n, ok := g.Node(id); ok {
			return n.Name
		}
		return id
	}
	lines := make([]string, 0, len(snap.Result.Connectors))
	for _, c := range snap.Result.Connectors {
		arrow := "↑"
		if c.Direction == trace.Downstream {
			arrow = "↓"
		}
		lines = append(lines, fmt.Sprintf("%s %s → %s", arrow, name(c.From), name(c.To)))
	}
	return lines
}

func (m Model) renderConnectorPanel(snap viewer.Snapshot) string {
	width := m.boardWidth()
	inner := max(width-4, 10)
	var rows []string

	switch {
	case snap.MilestoneMode():
		rows = append(rows, m.theme.Muted.Render(truncate("Milestone mode: select a system to trace its data flow.", inner)))
	case snap.Selected == "":
		rows = append(rows, m.theme.Muted.Render(truncate("No system selected. Move with arrows/hjkl, enter to trace.", inner)))
	default:
		n, ok := m.graph.Node(snap.Selected)
		name := snap.Selected
		if ok {
			name = n.Name
		}
		summary := fmt.Sprintf("%s · %d sources · %d destinations · %d connectors",
			name, len(snap.Result.Ancestors), len(snap.Result.Descendants), len(snap.Result.Connectors))
		rows = append(rows, m.theme.CardSelected.Render(truncate(summary, inner)))
		if ok && n.Description != "" {
			rows = append(rows, m.theme.Muted.Render(truncate(firstLine(n.Description), inner)))
		}

		lines := connectorLines(snap, m.graph)
		room := panelRows - len(rows)
		for i, line := range lines {
			if i == room-1 && len(lines) > room {
				rows = append(rows, m.theme.Muted.Render(fmt.Sprintf("… +%d more", len(lines)-i)))
				break
			}
			style := m.theme.CardSource
			if snap.Result.Connectors[i].Direction == trace.Downstream {
				style = m.theme.CardTarget
			}
			rows = append(rows, style.Render(truncate(line, inner)))
		}
	}

	for len(rows) < panelRows {
		rows = append(rows, "")
	}
	return m.theme.Panel.Width(max(width-2, 0)).Render(strings.Join(rows[:panelRows], "\n"))
}

const helpText = "←↓↑→/hjkl move · enter trace · esc clear · 1-4 milestone · f filter · p connectors · c chat · K key · X remove key · y copy · r reload · q quit"

func (m Model) renderFooter() string {
	if m.showHelp || m.status == "" {
		return m.theme.Help.Render(truncate(helpText, m.width))
	}
	if m.statusErr {
		return m.theme.Error.Render(truncate(m.status, m.width))
	}
	return m.theme.Status.Render(truncate(m.status, m.width))
}
