package ui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned by Wait when the user interrupts the wait
var ErrCancelled = errors.New("cancelled")

// waitDoneMsg carries the result of the work started by a WaitModel
type waitDoneMsg struct {
	value any
	err   error
}

// WaitModel shows a spinner next to a label until its work finishes
type WaitModel struct {
	Label   string
	Spinner spinner.Model

	work      func() (any, error)
	done      bool
	cancelled bool
	value     any
	err       error
}

// NewWaitModel creates a spinner that runs work and quits when it returns
func NewWaitModel(label string, work func() (any, error)) WaitModel {
	return WaitModel{
		Label: label,
		Spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(SpinnerStyle),
		),
		work: work,
	}
}

// Init implements tea.Model
func (m WaitModel) Init() tea.Cmd {
	work := m.work
	return tea.Batch(
		m.Spinner.Tick,
		func() tea.Msg {
			v, err := work()
			return waitDoneMsg{value: v, err: err}
		},
	)
}

// Update implements tea.Model
func (m WaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.cancelled = true
			return m, tea.Quit
		}

	case waitDoneMsg:
		m.done = true
		m.value = msg.value
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m WaitModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return m.Spinner.View() + " " + m.Label
}

// Result returns the work's outcome, or ErrCancelled if the user quit first
func (m WaitModel) Result() (any, error) {
	if m.cancelled {
		return nil, ErrCancelled
	}
	return m.value, m.err
}

// Wait runs work behind a spinner on the terminal. The context passed to work
// is cancelled when the user interrupts or ctx ends.
func Wait[T any](ctx context.Context, label string, work func(context.Context) (T, error)) (T, error) {
	var zero T

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewWaitModel(label, func() (any, error) {
		return work(ctx)
	})
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, err
	}

	v, err := final.(WaitModel).Result()
	if err != nil {
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}
