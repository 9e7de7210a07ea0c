package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	regionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	warpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

func renderReport(r *Report, width int) string {
	if width < 20 {
		width = 20
	}
	inner := width - 4

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s from %s", r.Character, r.Start)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d region(s) reachable in %d pass(es)", len(r.Regions), r.Passes)))
	b.WriteString("\n\n")

	for _, line := range r.Regions {
		name := fmt.Sprintf("%-4s %s", line.Code, line.Name)
		style := regionStyle
		if line.Warp {
			name += " *"
			style = warpStyle
		}
		b.WriteString(style.Render(name))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  rooms %d, shelters %d, items %d", line.Rooms, line.Shelters, line.Collectible)))
		b.WriteString("\n")
	}

	if len(r.Meta) > 0 {
		b.WriteString("\n")
		b.WriteString(wordwrap.String("Also open: "+strings.Join(r.Meta, ", "), inner))
		b.WriteString("\n")
	}
	if len(r.Locked) > 0 {
		b.WriteString("\n")
		b.WriteString(lockedStyle.Render(wordwrap.String("Locked: "+strings.Join(r.Locked, ", "), inner)))
		b.WriteString("\n")
	}

	// The border adds one column on each side.
	return panelStyle.Width(width - 2).Render(strings.TrimRight(b.String(), "\n"))
}
