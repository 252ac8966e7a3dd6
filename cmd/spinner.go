package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

type callDoneMsg struct {
	err error
}

type spinnerModel struct {
	spinner spinner.Model
	label   string
	call    tea.Cmd
	err     error
	done    bool
}

func newSpinnerModel(label string, call tea.Cmd) spinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return spinnerModel{
		spinner: s,
		label:   label,
		call:    call,
	}
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.call)
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case callDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runSpinner animates label on output until call returns.
func runSpinner(ctx context.Context, output io.Writer, label string, call func(context.Context) error) error {
	callCmd := func() tea.Msg {
		return callDoneMsg{err: call(ctx)}
	}

	p := tea.NewProgram(
		newSpinnerModel(label, callCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(spinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}

// call runs fn behind a spinner on stderr unless --quiet or --json is set.
func (a *app) call(cmd *cobra.Command, label string, fn func(context.Context) error) error {
	if a.quiet || wantsJSON(cmd) {
		return fn(cmd.Context())
	}
	return runSpinner(cmd.Context(), cmd.ErrOrStderr(), label, fn)
}

func wantsJSON(cmd *cobra.Command) bool {
	flag := cmd.Flags().Lookup("json")
	return flag != nil && flag.Value.String() == "true"
}
