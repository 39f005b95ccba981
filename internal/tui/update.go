package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	cliinsights "github.com/julianstephens/anchor/internal/cli/insights"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/tui/components/habits"
	"github.com/julianstephens/anchor/internal/tui/components/insights"
	"github.com/julianstephens/anchor/internal/validation"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == StateLogAmount || m.state == StateDismiss {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		// Tabs, status line and help take the remaining rows
		h := msg.Height - 7
		if h < 0 {
			h = 0
		}
		m.habitsModel.SetSize(msg.Width-4, h)
		m.insightsModel.SetSize(msg.Width-4, h)
		return m, nil

	case habits.LogHabitMsg:
		if msg.Kind == models.HabitKindAmount {
			return m, m.openLogForm(msg.ID)
		}
		m.logSession(msg.ID, nil, "")
		return m, nil

	case insights.DismissMsg:
		m.dismissForm = &DismissFormModel{ID: msg.ID}
		m.form = cliinsights.DismissForm(&m.dismissForm.Reason, &m.dismissForm.Note)
		m.state = StateDismiss
		return m, m.form.Init()

	case insights.RefreshMsg:
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.warning = ""
		m.status = "Running analysis..."
		return m, m.runBriefing()

	case briefingMsg:
		m.loading = false
		if msg.stats != nil {
			m.habitsModel.SetStats(msg.stats)
		}
		m.reloadObservations()
		if msg.err != nil {
			m.status = ""
			m.warning = "⚠ Analysis skipped: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Analysis complete: %d active observation(s)", len(msg.obs))
		}
		return m, nil

	case tea.KeyMsg:
		if !m.filtering() {
			switch {
			case key.Matches(msg, m.keys.Quit):
				m.quitting = true
				return m, tea.Quit
			case key.Matches(msg, m.keys.Tab):
				m.state = (m.state + 1) % tabCount
				return m, nil
			case key.Matches(msg, m.keys.ShiftTab):
				m.state = (m.state + tabCount - 1) % tabCount
				return m, nil
			case key.Matches(msg, m.keys.Help):
				m.help.ShowAll = !m.help.ShowAll
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateHabits:
		m.habitsModel, cmd = m.habitsModel.Update(msg)
	case StateInsights:
		m.insightsModel, cmd = m.insightsModel.Update(msg)
	}
	return m, cmd
}

func (m Model) filtering() bool {
	switch m.state {
	case StateHabits:
		return m.habitsModel.Filtering()
	case StateInsights:
		return m.insightsModel.Filtering()
	}
	return false
}

func (m *Model) openLogForm(habitID string) tea.Cmd {
	habit, err := m.ctx.Store.GetHabit(habitID)
	if err != nil {
		m.warning = "⚠ " + err.Error()
		return nil
	}
	m.logForm = &LogFormModel{HabitID: habit.ID, Title: habit.Title}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Amount for %s", habit.Title)).
				Value(&m.logForm.Amount).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 0 {
						return fmt.Errorf("enter a non-negative whole number")
					}
					return nil
				}),
			huh.NewInput().
				Title("Note (optional)").
				CharLimit(validation.MaxNoteLength).
				Value(&m.logForm.Note),
		),
	)
	m.state = StateLogAmount
	return m.form.Init()
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	back := StateHabits
	if m.state == StateDismiss {
		back = StateInsights
	}

	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = back
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		if m.state == StateDismiss {
			m.dismiss(*m.dismissForm)
		} else {
			amount, _ := strconv.Atoi(strings.TrimSpace(m.logForm.Amount))
			m.logSession(m.logForm.HabitID, &amount, m.logForm.Note)
		}
		m.state = back
		m.form = nil
	case huh.StateAborted:
		m.state = back
		m.form = nil
	}
	return m, cmd
}

func (m *Model) logSession(habitID string, amount *int, note string) {
	habit, err := m.ctx.Store.GetHabit(habitID)
	if err != nil {
		m.warning = "⚠ " + err.Error()
		return
	}
	session := models.HabitSession{
		HabitID:   habit.ID,
		Amount:    amount,
		Note:      strings.TrimSpace(note),
		CreatedAt: m.ctx.Today(),
	}
	if err := validation.ValidateSession(session, habit); err != nil {
		m.warning = "⚠ " + err.Error()
		return
	}
	if _, err := m.ctx.Store.AddHabitSession(session); err != nil {
		m.warning = "⚠ Failed to log session: " + err.Error()
		return
	}
	m.warning = ""
	m.status = "Logged " + habit.Title
	m.reloadHabits()
}

func (m *Model) dismiss(f DismissFormModel) {
	note := strings.TrimSpace(f.Note)
	if err := validation.ValidateDismissal(f.Reason, note); err != nil {
		m.warning = "⚠ " + err.Error()
		return
	}
	if err := m.ctx.Store.DismissObservation(context.Background(), m.ctx.UserID(), f.ID, f.Reason, note); err != nil {
		m.warning = "⚠ Failed to dismiss: " + err.Error()
		return
	}
	m.warning = ""
	m.status = fmt.Sprintf("Dismissed observation (%s)", f.Reason)
	m.reloadObservations()
}
