package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/nestcomp/internal/compositor"
)

// Tab identifies a TUI tab.
type Tab int

const (
	TabSurfaces Tab = iota
	TabStatus
	tabCount // sentinel for iteration
)

func (t Tab) String() string {
	switch t {
	case TabSurfaces:
		return "Surfaces"
	case TabStatus:
		return "Status"
	default:
		return "?"
	}
}

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Background(lipgloss.Color("236")).
				Padding(0, 2)

	tabBarStyle = lipgloss.NewStyle().
			MarginBottom(1)

	tabGap = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		SetString(" ")
)

func renderTabBar(active Tab, width int) string {
	var tabs []string
	for i := Tab(0); i < tabCount; i++ {
		label := fmt.Sprintf("%d:%s", int(i)+1, i)
		if i == active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, intersperse(tabs, tabGap.Render())...)
	return tabBarStyle.Width(width).Render(row)
}

// intersperse inserts sep between each element of items.
func intersperse(items []string, sep string) []string {
	if len(items) <= 1 {
		return items
	}
	result := make([]string, 0, len(items)*2-1)
	for i, item := range items {
		if i > 0 {
			result = append(result, sep)
		}
		result = append(result, item)
	}
	return result
}

func renderStatusBar(status *compositor.Status, lastErr string, width int) string {
	var line string
	switch {
	case status != nil:
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts := []string{
			dot + " compositor running",
			"output:" + status.Output,
			fmt.Sprintf("surfaces:%d/%d", status.Mapped, status.Surfaces),
			"render:" + status.SchedulerState,
		}
		line = strings.Join(parts, "  ")
	default:
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		line = dot + " daemon not running"
	}
	if lastErr != "" {
		line += "  " + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(lastErr)
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(line)
}

func renderHelpBar(active Tab, spawning bool, width int) string {
	help := "tab: switch tabs  1-2: jump  q/ctrl-c: quit"
	switch {
	case spawning:
		help = "enter: next  shift+tab: back  esc: cancel"
	case active == TabSurfaces:
		help = "enter: raise  n: new  m: map/unmap  d: destroy  t: tile  " + help
	}
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}
