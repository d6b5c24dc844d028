package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"kestrel/pkg/kauthority"
	"kestrel/pkg/kscope"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the demo batch on a loop and render a live metrics dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		authority, scope, err := setupDemo()
		if err != nil {
			return err
		}
		defer authority.Dispose()

		m := newWatchModel(authority, scope)
		p := tea.NewProgram(m)
		_, err = p.Run()
		return err
	},
}

type tickMsg time.Time

type watchModel struct {
	authority *kauthority.Authority
	scope     *kscope.Scope
	runs      int
	lastBatch []demoResult

	busySpinner spinner.Model
	poolGauge   progress.Model
}

func newWatchModel(a *kauthority.Authority, s *kscope.Scope) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = busySpinnerStyle

	return watchModel{
		authority:   a,
		scope:       s,
		busySpinner: sp,
		poolGauge:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(24)),
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(tick(), m.busySpinner.Tick)
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		m.lastBatch = runDemoBatch(m.scope)
		m.runs++
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.busySpinner, cmd = m.busySpinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	okStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	busySpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

func (m watchModel) View() string {
	s := headerStyle.Render("kestrel demo dashboard") + "\n\n"
	s += fmt.Sprintf("batches run: %d\n\n", m.runs)

	for _, r := range m.lastBatch {
		if r.err != nil {
			s += errStyle.Render(fmt.Sprintf("  %-20s ERROR %v", r.name, r.err)) + "\n"
		} else {
			s += okStyle.Render(fmt.Sprintf("  %-20s OK    %v", r.name, r.val)) + "\n"
		}
	}

	metrics := m.authority.Metrics()

	busyIndicator := dimStyle.Render("idle")
	if metrics.BusyWorkers > 0 {
		busyIndicator = fmt.Sprintf("%s busy (%d)", m.busySpinner.View(), metrics.BusyWorkers)
	}

	var saturation float64
	if metrics.WorkerPoolSize > 0 {
		saturation = float64(metrics.BusyWorkers) / float64(metrics.WorkerPoolSize)
	}

	s += "\n" + dimStyle.Render(fmt.Sprintf(
		"scope=%s state=%v tasks=%d pool=%d idle=%d",
		m.scope.ID(), m.scope.State(), m.scope.TaskCount(), metrics.WorkerPoolSize, metrics.IdleWorkers,
	)) + "\n"
	s += fmt.Sprintf("workers: %s  %s\n", busyIndicator, m.poolGauge.ViewAs(saturation))
	s += dimStyle.Render("press q to quit") + "\n"
	return s
}
