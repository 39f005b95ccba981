package habits

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/anchor/internal/habitstats"
	"github.com/julianstephens/anchor/internal/models"
)

// LogHabitMsg asks the parent model to record a session for the habit.
type LogHabitMsg struct {
	ID   string
	Kind models.HabitKind
}

type Item struct {
	Stats habitstats.Result
}

func (i Item) Title() string {
	days := i.Stats.Last7Days
	if len(days) > 0 && days[len(days)-1].Success {
		return "✓ " + i.Stats.Title
	}
	return "○ " + i.Stats.Title
}

func (i Item) Description() string {
	unit := "d"
	if i.Stats.Cadence == habitstats.CadenceWeekly {
		unit = "w"
	}
	return fmt.Sprintf("%s · streak %d%s · best %d%s · %d%% all time · %s",
		i.Stats.Cadence, i.Stats.ActiveStreak, unit, i.Stats.LongestStreak, unit,
		i.Stats.AllTime.Percent, habitstats.Strip(i.Stats.Last7Days))
}

func (i Item) FilterValue() string { return i.Stats.Title }

type KeyMap struct {
	Log key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Log: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "log session"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(results []habitstats.Result, width, height int) Model {
	l := list.New(items(results), list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Log}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Log}
	}

	return Model{list: l, keys: keys}
}

func items(results []habitstats.Result) []list.Item {
	out := make([]list.Item, len(results))
	for i, r := range results {
		out[i] = Item{Stats: r}
	}
	return out
}

func (m *Model) SetStats(results []habitstats.Result) {
	m.list.SetItems(items(results))
}

// Filtering reports whether the list is capturing keystrokes for its filter.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && !m.Filtering() && key.Matches(msg, m.keys.Log) {
		if i, ok := m.list.SelectedItem().(Item); ok {
			return m, func() tea.Msg { return LogHabitMsg{ID: i.Stats.HabitID, Kind: i.Stats.Kind} }
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && !m.Filtering() {
		return "\n  No active habits.\n  Add one with 'anchor habit add'."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
