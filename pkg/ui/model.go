// Package ui is the terminal front end of the sign-in bot. It drives the
// same check-in entry point as the CLI; overlapping a manual trigger with a
// scheduled fire is prevented here by refusing manual triggers while an
// attempt is running.
package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/config"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/schedule"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/signin"
)

// CheckinRunner is the check-in entry point the UI invokes.
type CheckinRunner func(ctx context.Context) (*signin.AttemptResult, error)

// maxHistory bounds the attempt history shown on screen.
const maxHistory = 8

type resultMsg struct {
	result *signin.AttemptResult
	err    error
}

// refreshMsg re-renders the schedule countdown once a second.
type refreshMsg time.Time

// Model is the Bubble Tea model for the sign-in TUI.
type Model struct {
	settings *config.Settings
	runner   CheckinRunner
	loop     *schedule.Loop

	spinner spinner.Model
	running bool

	schedulerOn     bool
	cancelScheduler context.CancelFunc

	lastResult *signin.AttemptResult
	history    []string
	showConfig bool
	copied     bool

	width  int
	height int
}

// New builds the TUI model. loop may be nil when scheduling is disabled in
// the config.
func New(settings *config.Settings, runner CheckinRunner, loop *schedule.Loop) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		settings: settings,
		runner:   runner,
		loop:     loop,
		spinner:  sp,
	}
}

// Init starts the spinner and the once-a-second refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refreshTick())
}

func refreshTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// runCheckin fires the workflow off the UI goroutine and reports back as a
// resultMsg.
func (m Model) runCheckin() tea.Cmd {
	runner := m.runner
	return func() tea.Msg {
		result, err := runner(context.Background())
		return resultMsg{result: result, err: err}
	}
}

// Run starts the TUI program and blocks until the user exits. The scheduler
// goroutine, if toggled on, is cancelled on the way out.
func Run(settings *config.Settings, runner CheckinRunner, loop *schedule.Loop) error {
	p := tea.NewProgram(New(settings, runner, loop), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
