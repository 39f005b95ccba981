package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/anchor/internal/cli"
	"github.com/julianstephens/anchor/internal/habitstats"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/tui/components/habits"
	"github.com/julianstephens/anchor/internal/tui/components/insights"
)

type SessionState int

const (
	StateHabits SessionState = iota
	StateInsights
	StateLogAmount
	StateDismiss
)

// tabCount is the number of states reachable with tab.
const tabCount = 2

type LogFormModel struct {
	HabitID string
	Title   string
	Amount  string
	Note    string
}

type DismissFormModel struct {
	ID     string
	Reason models.DismissReason
	Note   string
}

// briefingMsg carries the result of a background pipeline run.
type briefingMsg struct {
	stats []habitstats.Result
	obs   []models.Observation
	err   error
}

type Model struct {
	ctx           *cli.Context
	state         SessionState
	keys          KeyMap
	help          help.Model
	habitsModel   habits.Model
	insightsModel insights.Model
	form          *huh.Form
	logForm       *LogFormModel
	dismissForm   *DismissFormModel
	status        string
	warning       string
	loading       bool
	quitting      bool
	width         int
	height        int
}

func NewModel(ctx *cli.Context) Model {
	m := Model{
		ctx:           ctx,
		state:         StateHabits,
		keys:          DefaultKeyMap(),
		help:          help.New(),
		habitsModel:   habits.New(nil, 0, 0),
		insightsModel: insights.New(nil, 0, 0),
	}
	m.reloadHabits()
	m.reloadObservations()
	return m
}

func (m Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
}

func (m Model) FullHelp() [][]key.Binding {
	return m.keys.FullHelp()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m *Model) reloadHabits() {
	stats, err := m.ctx.HabitStats()
	if err != nil {
		m.warning = "⚠ Failed to load habits: " + err.Error()
		return
	}
	m.habitsModel.SetStats(stats)
}

func (m *Model) reloadObservations() {
	obs, err := m.ctx.Store.GetActiveObservations(context.Background(), m.ctx.UserID(), 0)
	if err != nil {
		m.warning = "⚠ Failed to load observations: " + err.Error()
		return
	}
	m.insightsModel.SetObservations(obs)
}

// runBriefing runs the pipeline off the UI goroutine.
func (m Model) runBriefing() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		stats, obs, err := ctx.Briefing(context.Background())
		return briefingMsg{stats: stats, obs: obs, err: err}
	}
}
