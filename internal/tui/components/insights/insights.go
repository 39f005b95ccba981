package insights

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	cliinsights "github.com/julianstephens/anchor/internal/cli/insights"
	"github.com/julianstephens/anchor/internal/models"
)

type DismissMsg struct {
	ID string
}

// RefreshMsg asks the parent model to run the observation pipeline.
type RefreshMsg struct{}

type Item struct {
	Observation models.Observation
}

func (i Item) Title() string { return i.Observation.Text }

func (i Item) Description() string {
	o := i.Observation
	return fmt.Sprintf("%s · %s/%s · %s", o.DateRef, o.Scope, o.Category, cliinsights.Confidence(o.Confidence))
}

func (i Item) FilterValue() string { return i.Observation.Text }

type KeyMap struct {
	Dismiss key.Binding
	Refresh key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Dismiss: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "dismiss"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "run analysis"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(obs []models.Observation, width, height int) Model {
	l := list.New(items(obs), list.NewDefaultDelegate(), width, height)
	l.Title = "Insights"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Dismiss, keys.Refresh}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Dismiss, keys.Refresh}
	}

	return Model{list: l, keys: keys}
}

func items(obs []models.Observation) []list.Item {
	out := make([]list.Item, len(obs))
	for i, o := range obs {
		out[i] = Item{Observation: o}
	}
	return out
}

func (m *Model) SetObservations(obs []models.Observation) {
	m.list.SetItems(items(obs))
}

func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && !m.Filtering() {
		switch {
		case key.Matches(msg, m.keys.Dismiss):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return DismissMsg{ID: i.Observation.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, func() tea.Msg { return RefreshMsg{} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && !m.Filtering() {
		return "\n  No observations yet.\n  Press 'r' to run the analysis."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
