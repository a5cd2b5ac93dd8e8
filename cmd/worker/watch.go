package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/redis/go-redis/v9"

	"github.com/videogen/streamworker/internal/statusview"
)

const watchRefreshInterval = 2 * time.Second

// watchModel re-renders the status table on a ticker, grounded on the
// teacher's keyPickerModel (app/host/styles.go: Init/Update/View driven by
// tea.NewProgram(..., tea.WithAltScreen())), repurposed from an interactive
// key picker to a passive auto-refreshing snapshot view.
type watchModel struct {
	ctx        context.Context
	client     *redis.Client
	streamName string

	snap statusview.Snapshot
	err  error
}

type watchTickMsg time.Time

type watchSnapMsg struct {
	snap statusview.Snapshot
	err  error
}

func newWatchModel(ctx context.Context, client *redis.Client, streamName string) *watchModel {
	return &watchModel{ctx: ctx, client: client, streamName: streamName}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.collect(), tea.Tick(watchRefreshInterval, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	}))
}

func (m *watchModel) collect() tea.Cmd {
	return func() tea.Msg {
		snap, err := statusview.Collect(m.ctx, m.client, m.streamName, time.Now())
		return watchSnapMsg{snap: snap, err: err}
	}
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case watchTickMsg:
		return m, tea.Batch(m.collect(), tea.Tick(watchRefreshInterval, func(t time.Time) tea.Msg {
			return watchTickMsg(t)
		}))
	case watchSnapMsg:
		m.snap, m.err = msg.snap, msg.err
	}
	return m, nil
}

func (m *watchModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("collecting status: %v\n\npress q to exit\n", m.err)
	}
	border := lipgloss.NewStyle().BorderForeground(borderColor)
	help := "\nrefreshes every " + watchRefreshInterval.String() + " • press q or esc to exit\n"
	return border.Render(renderStatusTable(m.snap)) + help
}

func runStatusWatch(ctx context.Context, client *redis.Client, streamName string) error {
	m := newWatchModel(ctx, client, streamName)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
