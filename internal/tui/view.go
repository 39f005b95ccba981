package tui

import (
	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateHabits:
		content = docStyle.Render(m.habitsModel.View())
	case StateInsights:
		content = docStyle.Render(m.insightsModel.View())
	case StateLogAmount, StateDismiss:
		content = docStyle.Render(m.form.View())
	}

	var line string
	switch {
	case m.warning != "":
		line = warningStyle.Render(m.warning)
	case m.status != "":
		line = statusStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		line,
		content,
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range []string{"Habits", "Insights"} {
		active := m.state == SessionState(i) ||
			(m.state == StateLogAmount && i == int(StateHabits)) ||
			(m.state == StateDismiss && i == int(StateInsights))
		if active {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}
