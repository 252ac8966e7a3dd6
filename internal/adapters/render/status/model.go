package status

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bnema/snippets-cli/internal/application"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

// clockMsg carries the instant the card is drawn at.
type clockMsg time.Time

// card draws one session snapshot. Token expiry is measured against the
// instant the program starts unless the caller pinned a time.
type card struct {
	status application.Status
	opts   RenderOptions
	clock  func() time.Time
	styles styles
	output string
}

func newCard(status application.Status, opts RenderOptions, clock func() time.Time) card {
	if clock == nil {
		clock = time.Now
	}
	return card{
		status: status,
		opts:   opts,
		clock:  clock,
		styles: newStyles(),
	}
}

func (c card) Init() tea.Cmd {
	if !c.opts.Now.IsZero() {
		now := c.opts.Now
		return func() tea.Msg { return clockMsg(now) }
	}
	clock := c.clock
	return func() tea.Msg { return clockMsg(clock()) }
}

func (c card) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	at, ok := msg.(clockMsg)
	if !ok {
		return c, nil
	}

	opts := c.opts
	opts.Now = time.Time(at)
	c.output = renderView(c.status, opts, c.styles)
	return c, tea.Quit
}

func (c card) View() string {
	return c.output
}

// Render draws the session card for status.
func Render(status application.Status, opts RenderOptions) (string, error) {
	return render(newCard(status, opts, nil))
}

func render(initial card) (string, error) {
	p := tea.NewProgram(initial, tea.WithInput(nil), tea.WithOutput(io.Discard))

	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("render status card: %w", err)
	}

	drawn, ok := final.(card)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}
	return drawn.View(), nil
}
